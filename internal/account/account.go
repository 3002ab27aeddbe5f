package account

import "time"

// Subscription status values.
const (
	StatusTrial  = "trial"
	StatusActive = "active"
)

// User represents a signed-up user together with their trial and
// subscription state.
type User struct {
	Email              string    `json:"email"`
	Plan               string    `json:"plan"`
	SubscriptionStatus string    `json:"subscription_status"`
	TrialStart         time.Time `json:"trial_start"`
	TrialEnd           time.Time `json:"trial_end"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
