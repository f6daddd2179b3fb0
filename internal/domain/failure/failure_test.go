package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := failure.ModuleNotAllowed("shop")
	wrapped := fmt.Errorf("dispatch: %w", err)

	assert.ErrorIs(t, wrapped, failure.ErrAccessDenied)
	assert.NotErrorIs(t, wrapped, failure.ErrNotFound)
	assert.Equal(t, failure.CodeAccessDenied, failure.CodeOf(wrapped))
}

func TestError_ErrorIncludesContext(t *testing.T) {
	t.Parallel()

	err := failure.ActionNotFound("core", "cronjob", "ping", "core/cronjobs/ping")
	assert.Equal(t, `cronjob "ping" does not exist in module "core" (at core/cronjobs/ping)`, err.Error())
	assert.Contains(t, err.Format(), "[NOT_FOUND]")
	assert.Contains(t, err.Format(), "Location: core/cronjobs/ping")
}

func TestError_WithCopiesAreIndependent(t *testing.T) {
	t.Parallel()

	base := failure.New(failure.CodeUpstreamFailure, "token exchange failed")
	cause := errors.New("401")
	derived := base.WithContext("analytics").WithSuggestion("re-link").WithUnderlying(cause)

	assert.Empty(t, base.Context)
	assert.Empty(t, base.Suggestion)
	assert.Nil(t, base.Unwrap())
	assert.Equal(t, "analytics", derived.Context)
	assert.ErrorIs(t, derived, cause)
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"access denied", failure.ModuleNotAllowed("x"), http.StatusForbidden},
		{"not found", failure.ConfigFileMissing("x", "modules/x/config"), http.StatusInternalServerError},
		{"empty validation list", failure.NewErrorList().AsError(), http.StatusOK},
		{"language", failure.InvalidLanguage("xx", []string{"en"}), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, failure.HTTPStatus(tt.err))
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, failure.ExitOK, failure.ExitCode(nil))
	assert.Equal(t, failure.ExitGeneric, failure.ExitCode(errors.New("usage")))
	assert.Equal(t, failure.ExitFatal, failure.ExitCode(failure.ActionNotFound("a", "action", "b", "")))
}

func TestErrorList(t *testing.T) {
	t.Parallel()

	list := failure.NewErrorList()
	assert.False(t, list.Required("client_id", "abc"))
	assert.True(t, list.Required("client_secret", "  "))
	list.Add("profile", "unknown profile")

	require.True(t, list.HasErrors())
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, "client_secret", list.Fields()[0].Field)

	err := list.AsError()
	assert.ErrorIs(t, err, failure.ErrValidationFailed)
	assert.Equal(t, http.StatusUnprocessableEntity, failure.HTTPStatus(err))
	assert.Contains(t, list.Error(), "2 validation errors")
}
