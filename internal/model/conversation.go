package model

// Role identifies who authored a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one entry of a chat transcript. Transcripts are ordered
// chronologically and are never persisted.
type Turn struct {
	Role    Role
	Content string
}
