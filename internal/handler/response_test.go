package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blognode/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error"},
		{"wrapped not found", fmt.Errorf("service/post: %w", apperror.NotFound("post", "x")), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("account", "a@b.com"), http.StatusConflict, "conflict"},
		{"unauthorized", apperror.Unauthorized("invalid email or password"), http.StatusUnauthorized, "unauthorized"},
		{"not authenticated", apperror.NotAuthenticated("like"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("nope"), http.StatusForbidden, "forbidden"},
		{"joined validation", errors.Join(apperror.ValidationFailed("title", "too long")), http.StatusBadRequest, "validation_error"},
		{"plain error", errors.New("SELECT * FROM secrets failed"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantCode, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.NotContains(t, body.Message, "SELECT")
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	big := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(big))
	rr := httptest.NewRecorder()

	var dst struct{ Title string }
	err := decodeJSON(rr, req, &dst)

	assert.ErrorIs(t, err, apperror.ErrValidation)
}
