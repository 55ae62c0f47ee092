package auth

import "reception/internal/workflow"

// User is a demo operator account. The desk ships with fixed credentials;
// there is no user management backend.
type User struct {
	ID           string
	Username     string
	Password     string
	Name         string
	Role         string
	Capabilities workflow.Capabilities
}

// Demo accounts. Roles map to composed capability sets, so adding a role is
// a data change, not a workflow change.
var demoUsers = []User{
	{
		ID:           "op-001",
		Username:     "accueil",
		Password:     "accueil2024",
		Name:         "Prisca MINTSA MI-OBIANG",
		Role:         "RECEPTION",
		Capabilities: workflow.Capabilities{},
	},
	{
		ID:       "op-002",
		Username: "superviseur",
		Password: "superviseur2024",
		Name:     "Sylvie ANGWE ABESSOLO",
		Role:     "SUPERVISOR",
		Capabilities: workflow.Capabilities{
			CanBulkSelectFromGrid: true,
		},
	},
	{
		ID:       "op-003",
		Username: "admin",
		Password: "admin2024",
		Name:     "Fabrice BOUKANDOU MOUSSODIA",
		Role:     "ADMIN",
		Capabilities: workflow.Capabilities{
			CanBulkSelectFromGrid: true,
			CanManagePersonnel:    true,
		},
	},
}

// Authenticate checks demo credentials and returns the matching account.
func Authenticate(username, password string) (User, bool) {
	for _, u := range demoUsers {
		if u.Username == username && u.Password == password {
			return u, true
		}
	}
	return User{}, false
}

// UserByID resolves a demo account by id, for token-refresh paths.
func UserByID(id string) (User, bool) {
	for _, u := range demoUsers {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
