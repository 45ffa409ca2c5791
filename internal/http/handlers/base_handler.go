// README: Base handler utilities (JSON helpers, validation, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"medride/internal/modules/distance"
	"medride/internal/modules/notification"
	"medride/internal/modules/pricing"
	"medride/internal/modules/request"
	"medride/internal/modules/reward"
	"medride/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module sentinels onto HTTP status codes.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, request.ErrBadRequest),
		errors.Is(err, reward.ErrBadRequest),
		errors.Is(err, pricing.ErrInvalidDistance),
		errors.Is(err, distance.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, request.ErrNotFound),
		errors.Is(err, notification.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, request.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, distance.ErrNoRoute):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// NewValidator returns a validator with the domain enum tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("requester_role", func(fl validator.FieldLevel) bool {
		return types.Role(fl.Field().String()).IsRequester()
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return types.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
		return request.Urgency(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return request.PaymentMethod(fl.Field().String()).Valid()
	})
	return v
}

// bind decodes the JSON body into dst and validates it. It writes the 400
// response itself and reports whether the handler may continue.
func bind(c *gin.Context, v *validator.Validate, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeError(c, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Field() + ": failed on " + fe.Tag()
	}
	return err.Error()
}

type pointDTO struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

func (p *pointDTO) toPoint() *types.Point {
	if p == nil {
		return nil
	}
	return &types.Point{Lat: p.Lat, Lng: p.Lng}
}
