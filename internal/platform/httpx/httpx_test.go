package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		title  string
	}{
		{err: fmt.Errorf("role: %w", ErrNotFound), status: http.StatusNotFound, title: "Not Found"},
		{err: ErrValidation, status: http.StatusBadRequest, title: "Validation Failed"},
		{err: ErrForbidden, status: http.StatusForbidden, title: "Forbidden"},
		{err: ErrUnauthorized, status: http.StatusUnauthorized, title: "Unauthorized"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, title: "Internal Error"},
	}
	for _, tc := range tests {
		t.Run(tc.title, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.title, body.Title)
			assert.Equal(t, tc.status, body.Status)
		})
	}
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

func TestDecode(t *testing.T) {
	var ok roleRequest
	require.NoError(t, Decode(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"DIRECTOR"}`)), &ok))
	assert.Equal(t, "DIRECTOR", ok.Role)

	var unknown roleRequest
	err := Decode(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"DIRECTOR","extra":1}`)), &unknown)
	assert.ErrorIs(t, err, ErrValidation)

	var missing roleRequest
	err = Decode(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)), &missing)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	rr := httptest.NewRecorder()
	RespondError(rr, err)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Role required")
}
