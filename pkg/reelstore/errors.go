package reelstore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrVideoNotFound indicates a video was not found, or exists but the
	// caller lacks visibility. The two cases are deliberately
	// indistinguishable.
	ErrVideoNotFound = errors.New("video not found")

	// ErrSessionNotFound indicates an upload session is absent, expired, or
	// owned by someone else. The cases are deliberately indistinguishable.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrSessionFinalized indicates an upload session was already finalized
	// into a video. Returned on re-finalize attempts.
	ErrSessionFinalized = errors.New("upload session already finalized")

	// ErrTagNotFound indicates a tag was not found
	ErrTagNotFound = errors.New("tag not found")

	// ErrInvalidStatus indicates a value outside the video status enum
	ErrInvalidStatus = errors.New("invalid video status")

	// ErrInvalidVisibility indicates a value outside the visibility enum
	ErrInvalidVisibility = errors.New("invalid visibility")

	// ErrInvalidQuery indicates a listing request that failed validation
	// before any query was executed
	ErrInvalidQuery = errors.New("invalid listing query")
)

// ConstraintError reports an invalid field value caught before or at the
// storage boundary.
type ConstraintError struct {
	Field  string
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation on %s: %s", e.Field, e.Reason)
}

// IsConstraintViolation reports whether err is (or wraps) a ConstraintError.
func IsConstraintViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// VideoError represents an error related to video operations
type VideoError struct {
	VideoID uuid.UUID
	Op      string
	Err     error
}

func (e *VideoError) Error() string {
	return fmt.Sprintf("video operation %s failed for video %s: %v", e.Op, e.VideoID, e.Err)
}

func (e *VideoError) Unwrap() error {
	return e.Err
}

// SessionError represents an error related to upload session operations
type SessionError struct {
	SessionID uuid.UUID
	Op        string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("upload session operation %s failed for session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// TransientError wraps a connection or timeout failure from the store.
// The whole logical operation is safe to retry: every write path is
// transactional, so a transient failure leaves no partial state.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient storage error in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
