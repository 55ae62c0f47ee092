package refdata

// Seed tables for the tax-administration reception desk. In production these
// would be refreshed from the HR export; the desk works off this snapshot.

var seedDepartments = []string{
	"Direction Générale",
	"Recouvrement",
	"Contrôle Fiscal",
	"Législation et Contentieux",
	"Grandes Entreprises",
	"Particuliers",
	"Informatique",
	"Ressources Humaines",
	"Accueil et Orientation",
}

var seedVisitReasons = []string{
	"Déclaration fiscale annuelle",
	"Paiement d'impôts",
	"Demande d'attestation fiscale",
	"Contentieux fiscal",
	"Immatriculation NIF",
	"Contrôle fiscal - convocation",
	"Dépôt de dossier",
	"Rendez-vous avec un agent",
	"Réclamation",
	"Autre",
}

var seedEmployees = []Employee{
	{Matricule: "DGI-0012", Name: "Séraphin NDONG NTOUTOUME", Department: "Recouvrement", Position: "Chef de service", Office: "B-204"},
	{Matricule: "DGI-0034", Name: "Marie-Claire OBAME ASSEKO", Department: "Contrôle Fiscal", Position: "Inspectrice principale", Office: "C-112"},
	{Matricule: "DGI-0047", Name: "Jean-Baptiste MOUSSAVOU", Department: "Grandes Entreprises", Position: "Gestionnaire de portefeuille", Office: "A-301"},
	{Matricule: "DGI-0051", Name: "Pélagie NZAMBA KOUMBA", Department: "Particuliers", Position: "Agent d'assiette", Office: "A-108"},
	{Matricule: "DGI-0063", Name: "Hervé ONDO MBA", Department: "Législation et Contentieux", Position: "Juriste fiscaliste", Office: "B-310"},
	{Matricule: "DGI-0078", Name: "Georgette MBOUMBA IVANGA", Department: "Recouvrement", Position: "Caissière principale", Office: "RDC-02"},
	{Matricule: "DGI-0085", Name: "Fabrice BOUKANDOU MOUSSODIA", Department: "Informatique", Position: "Administrateur systèmes", Office: "D-015"},
	{Matricule: "DGI-0092", Name: "Sylvie ANGWE ABESSOLO", Department: "Direction Générale", Position: "Assistante de direction", Office: "E-401"},
	{Matricule: "DGI-0101", Name: "Rodrigue KOMBILA MAGANGA", Department: "Contrôle Fiscal", Position: "Vérificateur", Office: "C-118"},
	{Matricule: "DGI-0115", Name: "Antoinette EYEGHE NDONG", Department: "Ressources Humaines", Position: "Gestionnaire carrières", Office: "E-210"},
	{Matricule: "DGI-0123", Name: "Landry MOUTSINGA MOUDOUMA", Department: "Grandes Entreprises", Position: "Inspecteur", Office: "A-305"},
	{Matricule: "DGI-0131", Name: "Prisca MINTSA MI-OBIANG", Department: "Accueil et Orientation", Position: "Hôtesse d'accueil", Office: "RDC-01"},
	{Matricule: "DGI-0144", Name: "Guy-Roger LEKOGO BOUASSA", Department: "Particuliers", Position: "Agent d'assiette", Office: "A-110"},
	{Matricule: "DGI-0152", Name: "Edwige NTSAME ALLOGO", Department: "Législation et Contentieux", Position: "Rédactrice contentieux", Office: "B-312"},
}

var seedCompanies = []Company{
	{Name: "Total Énergies Gabon", Sector: "Pétrole", City: "Port-Gentil"},
	{Name: "BGFI Bank", Sector: "Banque", City: "Libreville"},
	{Name: "Gabon Télécom", Sector: "Télécommunications", City: "Libreville"},
	{Name: "SEEG", Sector: "Eau et Énergie", City: "Libreville"},
	{Name: "Olam Gabon", Sector: "Agro-industrie", City: "Libreville"},
	{Name: "Comilog", Sector: "Mines", City: "Moanda"},
	{Name: "Assala Energy", Sector: "Pétrole", City: "Port-Gentil"},
	{Name: "UGB", Sector: "Banque", City: "Libreville"},
	{Name: "CECA-GADIS", Sector: "Distribution", City: "Libreville"},
	{Name: "Sobraga", Sector: "Agro-alimentaire", City: "Libreville"},
	{Name: "Airtel Gabon", Sector: "Télécommunications", City: "Libreville"},
	{Name: "Rougier Gabon", Sector: "Bois", City: "Libreville"},
	{Name: "Cabinet Fiduciaire d'Afrique", Sector: "Conseil", City: "Libreville"},
}
