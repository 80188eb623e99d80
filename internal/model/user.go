package model

// Role controls access to admin-only operations.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// UserStatus marks whether an account may sign in.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is an account record. AssignmentTitle references the ASSIGNMENT TITLE
// domain of the tasks table. PasswordHash holds a bcrypt hash, never plaintext.
type User struct {
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	AssignmentTitle string
	Role            Role
	Status          UserStatus
}

// Name returns the display name, falling back to the email address.
func (u User) Name() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Email
}

// IsActive reports whether the account is enabled. Rows written before the
// status column existed have an empty status and count as active.
func (u User) IsActive() bool {
	return u.Status != UserInactive
}

// Frequency is how often a user receives the task digest email.
type Frequency string

const (
	FrequencyDaily  Frequency = "Daily"
	FrequencyWeekly Frequency = "Weekly"
	FrequencyNever  Frequency = "Never"
)

// Setting is a per-user notification preference.
type Setting struct {
	Email     string
	Frequency Frequency
}
