package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy for the token lifecycle
var (
	// Callback errors
	ErrInvalidState = errors.New("invalid state")
	ErrNoCode       = errors.New("missing authorization code")
	ErrNoUserID     = errors.New("state carries no user id")

	// Token endpoint errors
	ErrTokenExchangeFailed     = errors.New("token exchange failed")
	ErrReauthorizationRequired = errors.New("reauthorization required")
	ErrUnauthorized            = errors.New("unauthorized")

	// Storage errors
	ErrStoreUnavailable      = errors.New("credential store unavailable")
	ErrPartialPersistFailure = errors.New("partial persist failure")
	ErrNotFound              = errors.New("not found")

	// Configuration errors
	ErrUnknownProvider = errors.New("unknown provider")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// TokenError describes a failed call to a provider token endpoint. Body keeps the
// provider's raw response for diagnostics and must never be rendered to a browser.
type TokenError struct {
	Provider string
	Status   int
	Code     string
	Body     string
	Err      error
}

func (e *TokenError) Error() string {
	msg := fmt.Sprintf("%s token endpoint", e.Provider)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// PersistError lists the services whose credential write failed during a callback.
type PersistError struct {
	Failed map[string]error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPartialPersistFailure, strings.Join(e.Services(), ","))
}

// Services returns the failed service names in sorted order
func (e *PersistError) Services() []string {
	services := make([]string, 0, len(e.Failed))
	for s := range e.Failed {
		services = append(services, s)
	}
	sort.Strings(services)
	return services
}

func (e *PersistError) Unwrap() []error {
	errs := []error{ErrPartialPersistFailure}
	for _, s := range e.Services() {
		errs = append(errs, e.Failed[s])
	}
	return errs
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
