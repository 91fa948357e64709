package domain

const (
	RoleGarage   = "GARAGE"
	RoleSupplier = "SUPPLIER"
	RoleAdmin    = "ADMIN"
)

type User struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	Name         string `db:"name"`
	Hash         string `db:"password_hash"`
	Role         string `db:"role"`
	Organization string `db:"organization"`
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Organization: u.Organization}
}

func (u *User) HasRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
