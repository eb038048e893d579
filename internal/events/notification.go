package events

import "context"

// Live events pushed to a single user.
const (
	ProposalStatusChanged     = "proposal:statusChanged"
	ProposalNewComment        = "proposal:newComment"
	CompanyClaimStatusChanged = "company:claimStatusChanged"
)

// In-process domain events published on the bus.
const (
	UserCreated = "users.created"
)

// NewUser is the UserCreated payload. It is a copy so handlers never share
// the row with the creating request.
type NewUser struct {
	ID    string
	Email string
	Name  string
}

// Notification is a best-effort message for one user. Transitions return
// them; they are delivered only after the surrounding transaction commits.
type Notification struct {
	UserID  string
	Event   string
	Payload interface{}
}

// Transport pushes an event to every live connection of a user. Delivering to
// a user with no live connection is not an error.
type Transport interface {
	EmitToUser(ctx context.Context, userID, event string, payload interface{}) error
}
