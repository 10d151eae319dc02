package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tillpos/internal/apierror"
	"tillpos/internal/middleware"
	"tillpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newErrorEngine(fail error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		respondError(c, fail)
	})
	return r
}

// decodeSingleJSON fails the test when the body holds anything beyond one
// JSON value — a concatenated second envelope is unparseable for clients.
func decodeSingleJSON(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	dec := json.NewDecoder(rec.Body)
	require.NoError(t, dec.Decode(dest))
	assert.False(t, dec.More(), "response body contains more than one JSON value")
}

func TestRespondErrorInfrastructureFailure(t *testing.T) {
	r := newErrorEngine(errors.New("store unavailable"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body apierror.APIError
	decodeSingleJSON(t, rec, &body)
	assert.Equal(t, "internal server error", body.Detail)
	// The raw cause never leaks to the client.
	assert.NotContains(t, rec.Body.String(), "store unavailable")
}

func TestRespondErrorDomainMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrSessionAlreadyOpen, http.StatusConflict, "SESSION_ALREADY_OPEN"},
		{service.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{service.ErrAmountMismatch, http.StatusBadRequest, "AMOUNT_MISMATCH"},
	}
	for _, tc := range cases {
		r := newErrorEngine(tc.err)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, tc.status, rec.Code, tc.code)
		var body apierror.APIError
		decodeSingleJSON(t, rec, &body)
		assert.Equal(t, tc.code, body.Code)
	}
}
