package campaign

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStrengths means the manager has no strengths configured.
	ErrNoStrengths = errors.New("no strengths configured")
	// ErrSubscriptionNotFound means no matching active subscription row exists.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ConfigurationError means caller-supplied data cannot produce a brief.
// It is not retryable until the data is fixed.
type ConfigurationError struct {
	UserID string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for user %s: %v", e.UserID, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NotFoundError means the subscription vanished between read and write.
// The caller must skip it and must not retry the send.
type NotFoundError struct {
	UserID string
	Type   CampaignType
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no active %s subscription for user %s", e.Type, e.UserID)
}

func (e *NotFoundError) Unwrap() error { return ErrSubscriptionNotFound }

// Stage names the collaborator that failed in an UpstreamError.
type Stage string

const (
	StageGenerate Stage = "generate"
	StageDeliver  Stage = "deliver"
	StageLoad     Stage = "load"
)

// UpstreamError wraps a failure of a collaborator. It is retried on the next tick.
type UpstreamError struct {
	Stage Stage
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether err should be retried on the next scheduled tick.
func Retryable(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up)
}
