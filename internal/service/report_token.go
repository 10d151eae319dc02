package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Report token scopes. "self" links only work for the session opener;
// "admin" links work for any authenticated admin. The controller only
// guarantees authenticity — the consuming endpoint enforces the scope.
const (
	ScopeSelf  = "self"
	ScopeAdmin = "admin"
)

// ReportClaims is the claim set bound into a report capability token.
type ReportClaims struct {
	ReportType  string `json:"report_type"` // opening | closure
	SessionID   string `json:"session_id"`
	RequesterID string `json:"requester_id"`
	Scope       string `json:"scope"`
	jwt.RegisteredClaims
}

// ReportTokenService issues and verifies signed, time-bounded capability
// tokens for report links. Tokens are stateless — nothing is persisted —
// and are signed with a secret separate from login tokens.
type ReportTokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewReportTokenService(secret string, ttl time.Duration) *ReportTokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportTokenService{secret: []byte(secret), ttl: ttl}
}

func (s *ReportTokenService) Issue(reportType string, sessionID, requesterID uuid.UUID, scope string) (string, error) {
	now := time.Now()
	claims := ReportClaims{
		ReportType:  reportType,
		SessionID:   sessionID.String(),
		RequesterID: requesterID.String(),
		Scope:       scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify never returns an error: malformed, expired or forged tokens all
// resolve to nil, which callers treat as "no token supplied".
func (s *ReportTokenService) Verify(tokenStr string) *ReportClaims {
	if tokenStr == "" {
		return nil
	}
	claims := &ReportClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	if claims.SessionID == "" || claims.RequesterID == "" {
		return nil
	}
	return claims
}
