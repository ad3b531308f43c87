package entities

import (
	"errors"
	"fmt"
	"time"
)

// Engine error taxonomy. Graph errors are recoverable: the session is left
// unchanged and the turn is reported, not silently swallowed.
var (
	ErrDuplicateUpdate = errors.New("duplicate update")
	ErrDanglingNode    = errors.New("dangling node reference")
	ErrMissingEntry    = errors.New("missing entry node")
	ErrHopBudget       = errors.New("node hop budget exceeded")
	ErrNoScenario      = errors.New("no active scenario matches")
	ErrPostClosed      = errors.New("channel post already closed")
	ErrBotUnavailable  = errors.New("bot not found or has no usable token")
)

// DeliveryError wraps a chat-platform API failure. Permanent failures
// (invalid chat, blocked bot, malformed payload) are reported without retry;
// transient ones (network, rate limit, server errors) are retried with
// backoff. RetryAfter carries the platform's requested pause on 429s.
type DeliveryError struct {
	Permanent  bool
	RetryAfter time.Duration
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("permanent delivery failure: %v", e.Err)
	}
	return fmt.Sprintf("transient delivery failure: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PermanentDelivery marks an error as not worth retrying.
func PermanentDelivery(err error) *DeliveryError {
	return &DeliveryError{Permanent: true, Err: err}
}

// TransientDelivery marks an error as retryable, optionally with a
// platform-requested pause.
func TransientDelivery(err error, retryAfter time.Duration) *DeliveryError {
	return &DeliveryError{RetryAfter: retryAfter, Err: err}
}

// IsPermanentDelivery reports whether err is a non-retryable delivery error.
func IsPermanentDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Permanent
}
