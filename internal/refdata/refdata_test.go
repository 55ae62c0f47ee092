package refdata

import "testing"

func TestFindEmployees_SubstringCaseInsensitive(t *testing.T) {
	d := New(nil, nil, nil, nil)

	byName := d.FindEmployees("ndong")
	if len(byName) == 0 {
		t.Fatal("no match for lowercase name fragment")
	}
	found := false
	for _, e := range byName {
		if e.Name == "Séraphin NDONG NTOUTOUME" {
			found = true
		}
	}
	if !found {
		t.Errorf("Séraphin NDONG NTOUTOUME not in results: %+v", byName)
	}

	byMatricule := d.FindEmployees("DGI-0012")
	if len(byMatricule) != 1 || byMatricule[0].Name != "Séraphin NDONG NTOUTOUME" {
		t.Errorf("matricule lookup: %+v", byMatricule)
	}

	byDept := d.FindEmployees("recouvrement")
	if len(byDept) < 2 {
		t.Errorf("department lookup returned %d results", len(byDept))
	}

	if got := d.FindEmployees("zzzz-no-such"); len(got) != 0 {
		t.Errorf("no-match query returned %d results", len(got))
	}
}

func TestFindEmployees_CappedAtMaxResults(t *testing.T) {
	many := make([]Employee, 40)
	for i := range many {
		many[i] = Employee{Matricule: "M", Name: "Agent", Department: "Commun", Position: "Agent"}
	}
	d := New(many, nil, nil, nil)
	if got := d.FindEmployees("agent"); len(got) != MaxResults {
		t.Errorf("len = %d, want %d", len(got), MaxResults)
	}
	if got := d.FindEmployees(""); len(got) != MaxResults {
		t.Errorf("empty query len = %d, want %d", len(got), MaxResults)
	}
}

func TestFindCompanies(t *testing.T) {
	d := New(nil, nil, nil, nil)
	banks := d.FindCompanies("banque")
	if len(banks) != 2 {
		t.Errorf("sector lookup returned %d results", len(banks))
	}
	if got := d.FindCompanies("BGFI"); len(got) != 1 || got[0].Name != "BGFI Bank" {
		t.Errorf("name lookup: %+v", got)
	}
}

func TestDirectory_ReadOnlyCopies(t *testing.T) {
	d := New(nil, nil, nil, nil)
	reasons := d.VisitReasons()
	if len(reasons) == 0 {
		t.Fatal("empty visit reasons")
	}
	reasons[0] = "mutated"
	if d.VisitReasons()[0] == "mutated" {
		t.Error("VisitReasons leaked internal slice")
	}
}

func TestEmployeeByName(t *testing.T) {
	d := New(nil, nil, nil, nil)
	if _, ok := d.EmployeeByName("séraphin ndong ntoutoume"); !ok {
		t.Error("case-insensitive exact match failed")
	}
	if _, ok := d.EmployeeByName("Nobody AT ALL"); ok {
		t.Error("unknown name resolved")
	}
}
