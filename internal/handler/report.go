package handler

import (
	"net/http"

	"tillpos/internal/apierror"
	"tillpos/internal/middleware"
	"tillpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportHandler serves opening/closure documents. Access is granted either
// by a signed capability token in the query string or by the caller's own
// login session — the route itself carries no mandatory auth middleware.
type ReportHandler struct {
	svc    service.SessionService
	tokens *service.ReportTokenService
}

func NewReportHandler(svc service.SessionService, tokens *service.ReportTokenService) *ReportHandler {
	return &ReportHandler{svc: svc, tokens: tokens}
}

// Get godoc
// @Summary Returns the opening or closure document of a till session
// @Tags till
// @Produce json
// @Param id path string true "Session ID"
// @Param format query string false "Document format (json)"
// @Param token query string false "Capability token"
// @Success 200 {object} dto.SessionReport
// @Failure 400 {object} apierror.APIError
// @Failure 401 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/till/{id}/report [get]
func (h *ReportHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	// Rendering lives in the reporting service; this endpoint only serves
	// the document source.
	if format := c.DefaultQuery("format", "json"); format != "json" {
		c.JSON(http.StatusBadRequest, apierror.New("unsupported format: "+format))
		return
	}

	report, err := h.svc.Report(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !h.authorize(c, sessionID, report.Session.OpenedByAdminID) {
		return
	}
	c.JSON(http.StatusOK, report)
}

// authorize grants access via capability token first, login session second.
// Writes the error response and returns false when neither suffices.
func (h *ReportHandler) authorize(c *gin.Context, sessionID uuid.UUID, openerID string) bool {
	// Verify never errors: a bad token is simply "no token".
	if claims := h.tokens.Verify(c.Query("token")); claims != nil {
		if claims.SessionID != sessionID.String() {
			c.JSON(http.StatusForbidden, apierror.WithCode("FORBIDDEN", "token is bound to a different session"))
			return false
		}
		// scope=self tokens only open the requester's own session.
		if claims.Scope == service.ScopeSelf && claims.RequesterID != openerID {
			c.JSON(http.StatusForbidden, apierror.WithCode("FORBIDDEN", "token does not grant access to this session"))
			return false
		}
		return true
	}

	login := middleware.GetClaims(c)
	if login == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("authentication required"))
		return false
	}
	// Without a token, the opener and back-office roles may read.
	if login.UserID == openerID || login.Role == "supervisor" || login.Role == "admin" {
		return true
	}
	c.JSON(http.StatusForbidden, apierror.WithCode("FORBIDDEN", "not allowed to read this report"))
	return false
}
