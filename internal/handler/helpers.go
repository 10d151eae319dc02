package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tillpos/internal/apierror"
	"tillpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps a service error to its HTTP response. Domain errors keep
// their stable code; anything else is an infrastructure failure handed to the
// error middleware as a 500.
func respondError(c *gin.Context, err error) {
	var de *service.DomainError
	if errors.As(err, &de) {
		status := http.StatusBadRequest
		switch de.Kind {
		case service.KindConflict:
			status = http.StatusConflict
		case service.KindForbidden:
			status = http.StatusForbidden
		case service.KindNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, apierror.WithCode(de.Code, de.Message))
		return
	}
	// Record only — the ErrorHandler middleware logs it and writes the
	// single 500 envelope after the handler returns.
	_ = c.Error(err)
}
