// README: Fare quote handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"medride/internal/modules/distance"
	"medride/internal/modules/pricing"
)

type QuoteHandler struct {
	pricing  *pricing.Service
	distance *distance.Service
	validate *validator.Validate
}

func NewQuoteHandler(pricingSvc *pricing.Service, resolver *distance.Service, v *validator.Validate) *QuoteHandler {
	return &QuoteHandler{pricing: pricingSvc, distance: resolver, validate: v}
}

type quoteReq struct {
	DistanceKm       *float64  `json:"distance_km" validate:"omitempty,gte=0,lte=1000"`
	Pickup           string    `json:"pickup" validate:"max=255"`
	Destination      string    `json:"destination" validate:"max=255"`
	PickupPoint      *pointDTO `json:"pickup_point" validate:"omitempty"`
	DestinationPoint *pointDTO `json:"destination_point" validate:"omitempty"`
	Urgency          string    `json:"urgency" validate:"omitempty,urgency"`
}

func (h *QuoteHandler) Quote(c *gin.Context) {
	var req quoteReq
	if !bind(c, h.validate, &req) {
		return
	}
	source := "input"
	km := 0.0
	if req.DistanceKm != nil {
		km = *req.DistanceKm
	} else {
		if h.distance == nil {
			writeError(c, http.StatusBadRequest, "distance_km is required")
			return
		}
		res, err := h.distance.Resolve(c.Request.Context(), distance.Query{
			Pickup:      req.Pickup,
			Destination: req.Destination,
			From:        req.PickupPoint.toPoint(),
			To:          req.DestinationPoint.toPoint(),
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}
		km = res.DistanceKm
		source = string(res.Source)
	}

	quote, err := h.pricing.Estimate(c.Request.Context(), pricing.PricingRequest{DistanceKm: km, Urgency: req.Urgency})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"quote": quote, "distance_source": source})
}
