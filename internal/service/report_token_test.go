package service

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportTokenRoundtrip(t *testing.T) {
	svc := NewReportTokenService("secret-a", time.Hour)
	sessionID := uuid.New()
	requesterID := uuid.New()

	token, err := svc.Issue("closure", sessionID, requesterID, ScopeSelf)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims := svc.Verify(token)
	require.NotNil(t, claims)
	assert.Equal(t, "closure", claims.ReportType)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, requesterID.String(), claims.RequesterID)
	assert.Equal(t, ScopeSelf, claims.Scope)
}

func TestReportTokenWrongSecret(t *testing.T) {
	issuer := NewReportTokenService("secret-a", time.Hour)
	verifier := NewReportTokenService("secret-b", time.Hour)

	token, err := issuer.Issue("closure", uuid.New(), uuid.New(), ScopeAdmin)
	require.NoError(t, err)
	assert.Nil(t, verifier.Verify(token))
}

func TestReportTokenTampered(t *testing.T) {
	svc := NewReportTokenService("secret-a", time.Hour)
	token, err := svc.Issue("closure", uuid.New(), uuid.New(), ScopeSelf)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	assert.Nil(t, svc.Verify(strings.Join(parts, ".")))
}

func TestReportTokenExpired(t *testing.T) {
	svc := NewReportTokenService("secret-a", -time.Minute)
	// The constructor refuses a non-positive TTL; force one for the test.
	svc.ttl = -time.Minute

	token, err := svc.Issue("closure", uuid.New(), uuid.New(), ScopeSelf)
	require.NoError(t, err)
	assert.Nil(t, svc.Verify(token))
}

func TestReportTokenGarbage(t *testing.T) {
	svc := NewReportTokenService("secret-a", time.Hour)
	assert.Nil(t, svc.Verify(""))
	assert.Nil(t, svc.Verify("not-a-jwt"))
}
