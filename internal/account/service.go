package account

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// RFC 5321 upper bound on address length.
const maxEmailLength = 254

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Access describes the outcome of an access check for one user.
type Access struct {
	Allowed  bool
	Plan     string // "subscription" or "trial" when allowed
	Reason   string // "trial_expired" when denied
	DaysLeft int
	Message  string
	User     *User
}

// Service handles signup, trial bookkeeping and payment recording
type Service struct {
	db         DB
	trialDays  int
	timeSource TimeSource
}

// NewService creates a new Service with the default time source
func NewService(db DB, trialDays int) *Service {
	return NewServiceWithDeps(db, trialDays, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with a custom time source for testing
func NewServiceWithDeps(db DB, trialDays int, timeSource TimeSource) *Service {
	return &Service{
		db:         db,
		trialDays:  trialDays,
		timeSource: timeSource,
	}
}

// TrialDays returns the configured trial length in days
func (s *Service) TrialDays() int {
	return s.trialDays
}

// NormalizeEmail lowercases and validates an email address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	if len(email) > maxEmailLength {
		return "", fmt.Errorf("email address too long")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email address")
	}
	return email, nil
}

// GetOrCreate returns the user for the given email, creating one with a
// fresh trial when none exists
func (s *Service) GetOrCreate(email string) (*User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.db.GetUser(email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	now := s.timeSource.Now()
	user = &User{
		Email:              email,
		Plan:               StatusTrial,
		SubscriptionStatus: StatusTrial,
		TrialStart:         now,
		TrialEnd:           now.AddDate(0, 0, s.trialDays),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.db.SaveUser(user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return user, nil
}

// CheckAccess reports whether the user may process files. Unknown emails are
// signed up on the spot with a fresh trial.
func (s *Service) CheckAccess(email string) (*Access, error) {
	user, err := s.GetOrCreate(email)
	if err != nil {
		return nil, err
	}

	if user.SubscriptionStatus == StatusActive {
		return &Access{
			Allowed: true,
			Plan:    "subscription",
			Message: "Active subscription",
			User:    user,
		}, nil
	}

	now := s.timeSource.Now()
	if user.Plan == StatusTrial && now.Before(user.TrialEnd) {
		daysLeft := int(user.TrialEnd.Sub(now).Hours() / 24)
		return &Access{
			Allowed:  true,
			Plan:     "trial",
			DaysLeft: daysLeft,
			Message:  fmt.Sprintf("Free trial (%d days left)", daysLeft),
			User:     user,
		}, nil
	}

	return &Access{
		Allowed: false,
		Reason:  "trial_expired",
		Message: "Free trial expired. Please choose a plan to continue.",
		User:    user,
	}, nil
}

// RecordPayment marks the user's subscription active under the given plan
func (s *Service) RecordPayment(email, plan string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.db.GetUser(email)
	if err != nil {
		return fmt.Errorf("getting user: %w", err)
	}

	user.SubscriptionStatus = StatusActive
	user.Plan = plan
	user.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveUser(user); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// List returns all users, for the admin view
func (s *Service) List() ([]*User, error) {
	users, err := s.db.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}
