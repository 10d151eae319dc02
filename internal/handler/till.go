package handler

import (
	"net/http"
	"strconv"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/middleware"
	"tillpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TillHandler struct{ svc service.SessionService }

func NewTillHandler(svc service.SessionService) *TillHandler { return &TillHandler{svc: svc} }

// Open godoc
// @Summary Opens a new till session with a starting float
// @Tags till
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening data"
// @Success 201 {object} dto.OpenSessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/till/open [post]
func (h *TillHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	callerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}

	resp, err := h.svc.Open(c.Request.Context(), callerID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Closes a till session and reconciles reported vs expected totals
// @Tags till
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CloseSessionRequest true "Closing declaration"
// @Success 200 {object} dto.CloseSessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/till/close [post]
func (h *TillHandler) Close(c *gin.Context) {
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	callerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}

	resp, err := h.svc.Close(c.Request.Context(), callerID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Active returns the caller's currently open till session.
func (h *TillHandler) Active(c *gin.Context) {
	claims := middleware.GetClaims(c)
	callerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}
	resp, err := h.svc.Active(c.Request.Context(), callerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("no active session"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of closed till sessions.
func (h *TillHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sessions, total, err := h.svc.History(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions, "total": total, "page": page, "limit": limit})
}
