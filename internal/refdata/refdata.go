package refdata

import "strings"

// MaxResults caps lookup responses so pickers stay responsive.
const MaxResults = 12

// Employee is a directory entry a visitor can be routed to.
type Employee struct {
	Matricule  string `json:"matricule"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Office     string `json:"office,omitempty"`
}

// Company is a known visiting organisation.
type Company struct {
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
	City   string `json:"city,omitempty"`
}

// Directory serves read-only lookups over tables loaded at construction.
type Directory struct {
	employees    []Employee
	companies    []Company
	departments  []string
	visitReasons []string
}

// New builds a directory over the provided tables. Nil slices fall back to
// the built-in seed data.
func New(employees []Employee, companies []Company, departments, visitReasons []string) *Directory {
	d := &Directory{
		employees:    employees,
		companies:    companies,
		departments:  departments,
		visitReasons: visitReasons,
	}
	if d.employees == nil {
		d.employees = seedEmployees
	}
	if d.companies == nil {
		d.companies = seedCompanies
	}
	if d.departments == nil {
		d.departments = seedDepartments
	}
	if d.visitReasons == nil {
		d.visitReasons = seedVisitReasons
	}
	return d
}

// FindEmployees returns employees whose name, matricule, department or
// position contains the query, case-insensitive, capped at MaxResults.
// An empty query returns the first MaxResults entries.
func (d *Directory) FindEmployees(query string) []Employee {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Employee, 0, MaxResults)
	for _, e := range d.employees {
		if q != "" && !matchEmployee(e, q) {
			continue
		}
		out = append(out, e)
		if len(out) == MaxResults {
			break
		}
	}
	return out
}

// FindCompanies returns companies whose name, sector or city contains the
// query, case-insensitive, capped at MaxResults.
func (d *Directory) FindCompanies(query string) []Company {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Company, 0, MaxResults)
	for _, c := range d.companies {
		if q != "" && !matchCompany(c, q) {
			continue
		}
		out = append(out, c)
		if len(out) == MaxResults {
			break
		}
	}
	return out
}

// Departments returns the full department list.
func (d *Directory) Departments() []string {
	out := make([]string, len(d.departments))
	copy(out, d.departments)
	return out
}

// VisitReasons returns the visit-reason catalogue.
func (d *Directory) VisitReasons() []string {
	out := make([]string, len(d.visitReasons))
	copy(out, d.visitReasons)
	return out
}

// EmployeeByName resolves an exact (case-insensitive) directory match.
func (d *Directory) EmployeeByName(name string) (Employee, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, e := range d.employees {
		if strings.ToLower(e.Name) == n {
			return e, true
		}
	}
	return Employee{}, false
}

func matchEmployee(e Employee, q string) bool {
	return strings.Contains(strings.ToLower(e.Name), q) ||
		strings.Contains(strings.ToLower(e.Matricule), q) ||
		strings.Contains(strings.ToLower(e.Department), q) ||
		strings.Contains(strings.ToLower(e.Position), q)
}

func matchCompany(c Company, q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Sector), q) ||
		strings.Contains(strings.ToLower(c.City), q)
}
