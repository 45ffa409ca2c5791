// README: Participant roles shared by the lifecycle and the score table.
package types

type Role string

const (
	RoleCaregiver     Role = "caregiver"
	RoleCHV           Role = "chv"
	RoleHealthOfficer Role = "health_officer"
	RoleRider         Role = "rider"
)

// RequesterRoles are the roles allowed to create transport requests.
var RequesterRoles = []Role{RoleCaregiver, RoleCHV, RoleHealthOfficer}

func (r Role) IsRequester() bool {
	for _, v := range RequesterRoles {
		if v == r {
			return true
		}
	}
	return false
}

func (r Role) Valid() bool {
	return r.IsRequester() || r == RoleRider
}
