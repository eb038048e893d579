package tasks

import "time"

// Task Types
const (
	// Email tasks
	TypePasswordOTP = "email:password_otp"
	TypeWelcome     = "email:welcome"

	// Maintenance tasks
	TypeCleanupPasswordResets = "maintenance:cleanup_password_resets"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like email sending
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like cleanup
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// DefaultCleanupSpec runs when no cleanup schedule is configured.
const DefaultCleanupSpec = "@hourly"

// EmailPayload is carried by every email task.
type EmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Code  string `json:"code,omitempty"`
}
