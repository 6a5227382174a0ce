package errors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenError_UnwrapsTaxonomy(t *testing.T) {
	err := fmt.Errorf("refresh: %w", &apperrors.TokenError{
		Provider: "google",
		Status:   400,
		Code:     "invalid_grant",
		Body:     `{"error":"invalid_grant"}`,
		Err:      apperrors.ErrReauthorizationRequired,
	})

	require.True(t, apperrors.Is(err, apperrors.ErrReauthorizationRequired))
	assert.False(t, apperrors.Is(err, apperrors.ErrTokenExchangeFailed))

	var tokenErr *apperrors.TokenError
	require.True(t, apperrors.As(err, &tokenErr))
	assert.Equal(t, 400, tokenErr.Status)
	assert.Contains(t, err.Error(), "google token endpoint status 400 (invalid_grant)")
}

func TestPersistError(t *testing.T) {
	cause := errors.New("disk full")
	err := &apperrors.PersistError{Failed: map[string]error{
		"google-gmail":     cause,
		"google-analytics": apperrors.ErrStoreUnavailable,
	}}

	assert.Equal(t, []string{"google-analytics", "google-gmail"}, err.Services())
	assert.True(t, errors.Is(err, apperrors.ErrPartialPersistFailure))
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "partial persist failure: google-analytics,google-gmail", err.Error())
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, apperrors.Wrapf(nil, "ctx"))

	err := apperrors.Wrapf(apperrors.ErrNotFound, "get %s", "fortnox")
	assert.Equal(t, "get fortnox: not found", err.Error())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
