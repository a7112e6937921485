package service

import "errors"

var (
	ErrNotFound        = errors.New("link not found")
	ErrLinkExpired     = errors.New("link has expired")
	ErrUsageLimit      = errors.New("link has reached maximum uses")
	ErrInvalidPassword = errors.New("invalid password")
	ErrAccessDenied    = errors.New("access denied")
	ErrSlugConflict    = errors.New("could not allocate a unique slug")
)

// ValidationError marks missing or malformed caller input. Handlers map it
// to a 400 with the message intact.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErr(msg string) error { return &ValidationError{Msg: msg} }

// IsValidation reports whether err is caller input rejection.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
