package models

import "fmt"

// Principal is the logged-in user as seen by request handlers.
// It is either a Patient or a Technician.
type Principal interface {
	UserID() string
	Role() Role
	DisplayName() string
	isPrincipal()
}

// Patient is a logged-in patient together with their profile
type Patient struct {
	ID       string
	Username string
	Email    string
	Profile  Profile
}

func (p *Patient) UserID() string { return p.ID }
func (p *Patient) Role() Role     { return RolePatient }
func (p *Patient) isPrincipal()   {}

func (p *Patient) DisplayName() string {
	if p.Profile.FullName != "" {
		return p.Profile.FullName
	}
	return p.Username
}

// ProfileComplete is recomputed on every call
func (p *Patient) ProfileComplete() bool {
	return p.Profile.Complete()
}

// Technician is a logged-in technician
type Technician struct {
	ID       string
	Username string
	Email    string
}

func (t *Technician) UserID() string      { return t.ID }
func (t *Technician) Role() Role          { return RoleTechnician }
func (t *Technician) DisplayName() string { return t.Username }
func (t *Technician) isPrincipal()        {}

// PrincipalFor builds the role specific principal for a stored user
func PrincipalFor(u *User) (Principal, error) {
	switch u.Role {
	case RolePatient:
		return &Patient{ID: u.ID, Username: u.Username, Email: u.Email, Profile: u.Profile}, nil
	case RoleTechnician:
		return &Technician{ID: u.ID, Username: u.Username, Email: u.Email}, nil
	default:
		return nil, fmt.Errorf("user %s has unknown role %q", u.ID, u.Role)
	}
}
