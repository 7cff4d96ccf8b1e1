package audit

import "time"

// Audit actions written by the platform. Reports filter on these names, keep
// them stable.
const (
	ActionLogin          = "Login"
	ActionLoginFailed    = "LoginFailed"
	ActionLogout         = "Logout"
	ActionPasswordChange = "PasswordChange"
	ActionUserCreated    = "UserCreated"
)

// Record is one immutable audit trail entry.
type Record struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
}
