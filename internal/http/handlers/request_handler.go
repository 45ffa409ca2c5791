// README: Transport request handlers (create, read, transitions, history).
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"medride/internal/modules/distance"
	"medride/internal/modules/request"
	"medride/internal/types"
)

type RequestHandler struct {
	requests *request.Service
	distance *distance.Service
	validate *validator.Validate
}

func NewRequestHandler(requests *request.Service, resolver *distance.Service, v *validator.Validate) *RequestHandler {
	return &RequestHandler{requests: requests, distance: resolver, validate: v}
}

type createRequestReq struct {
	RequesterID      string    `json:"requester_id" validate:"omitempty,max=64"`
	RequesterRole    string    `json:"requester_role" validate:"required,requester_role"`
	PatientName      string    `json:"patient_name" validate:"required,max=120"`
	ContactPhone     string    `json:"contact_phone" validate:"required,max=32"`
	Pickup           string    `json:"pickup" validate:"required,max=255"`
	Destination      string    `json:"destination" validate:"required,max=255"`
	DistanceKm       *float64  `json:"distance_km" validate:"omitempty,gte=0,lte=1000"`
	PickupPoint      *pointDTO `json:"pickup_point" validate:"omitempty"`
	DestinationPoint *pointDTO `json:"destination_point" validate:"omitempty"`
	Urgency          string    `json:"urgency" validate:"required,urgency"`
	PaymentMethod    string    `json:"payment_method" validate:"required,payment_method"`
}

type riderReq struct {
	RiderID string `json:"rider_id" validate:"required,max=64"`
}

type cancelReq struct {
	Reason string `json:"reason" validate:"max=255"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if !bind(c, h.validate, &req) {
		return
	}
	km, err := resolveDistance(c.Request.Context(), h.distance, req.DistanceKm, distance.Query{
		Pickup:      req.Pickup,
		Destination: req.Destination,
		From:        req.PickupPoint.toPoint(),
		To:          req.DestinationPoint.toPoint(),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	r, err := h.requests.Create(c.Request.Context(), request.CreateCommand{
		RequesterID:   types.ID(req.RequesterID),
		RequesterRole: types.Role(req.RequesterRole),
		PatientName:   req.PatientName,
		ContactPhone:  req.ContactPhone,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		DistanceKm:    km,
		Urgency:       request.Urgency(req.Urgency),
		PaymentMethod: request.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *RequestHandler) List(c *gin.Context) {
	rs, err := h.requests.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": rs})
}

func (h *RequestHandler) Get(c *gin.Context) {
	r, err := h.requests.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Accept(c *gin.Context) {
	var req riderReq
	if !bind(c, h.validate, &req) {
		return
	}
	r, err := h.requests.Accept(c.Request.Context(), request.AcceptCommand{
		RequestID: types.ID(c.Param("id")),
		RiderID:   types.ID(req.RiderID),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Reject(c *gin.Context) {
	var req riderReq
	if !bind(c, h.validate, &req) {
		return
	}
	r, err := h.requests.Reject(c.Request.Context(), request.RejectCommand{
		RequestID: types.ID(c.Param("id")),
		RiderID:   types.ID(req.RiderID),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if c.Request.ContentLength > 0 && !bind(c, h.validate, &req) {
		return
	}
	r, err := h.requests.Cancel(c.Request.Context(), request.CancelCommand{
		RequestID: types.ID(c.Param("id")),
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Start(c *gin.Context) {
	r, err := h.requests.Start(c.Request.Context(), request.StartCommand{RequestID: types.ID(c.Param("id"))})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Complete(c *gin.Context) {
	item, err := h.requests.Complete(c.Request.Context(), request.CompleteCommand{RequestID: types.ID(c.Param("id"))})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, item)
}

func (h *RequestHandler) History(c *gin.Context) {
	items, err := h.requests.History(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"history": items})
}

// resolveDistance uses the explicit distance when given, otherwise asks the resolver.
func resolveDistance(ctx context.Context, resolver *distance.Service, km *float64, q distance.Query) (float64, error) {
	if km != nil {
		return *km, nil
	}
	if resolver == nil {
		return 0, fmt.Errorf("%w: distance_km is required", request.ErrBadRequest)
	}
	res, err := resolver.Resolve(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DistanceKm, nil
}
