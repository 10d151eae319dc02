package handler

import (
	"net/http"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/middleware"
	"tillpos/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegistersHandler exposes the assignment directory: which registers the
// authenticated admin may operate. Read-only — the catalog is maintained
// elsewhere.
type RegistersHandler struct{ repo repository.RegisterRepository }

func NewRegistersHandler(repo repository.RegisterRepository) *RegistersHandler {
	return &RegistersHandler{repo: repo}
}

// ListMine returns the caller's assigned registers.
func (h *RegistersHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	callerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}

	assignments, err := h.repo.ListByAdmin(c.Request.Context(), callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.RegisterResponse, 0, len(assignments))
	for _, a := range assignments {
		resp = append(resp, dto.RegisterResponse{
			ID:              a.CashRegister.ID.String(),
			Code:            a.CashRegister.Code,
			Name:            a.CashRegister.Name,
			WarehouseCode:   a.CashRegister.WarehouseCode,
			DefaultCustomer: a.CashRegister.DefaultCustomer,
			IsDefault:       a.IsDefault,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
