package user

// User represents the authenticated counselor identity as reported by the
// platform backend. The session core treats it as opaque beyond the ID;
// the remaining attributes exist for display and role gating in the UI.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	Approved bool   `json:"approved,omitempty"`
}
