package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	domain_seat "github.com/seatvault/reservation-engine/src/internal/domain/seat"
	"github.com/seatvault/reservation-engine/src/internal/engine"
	"github.com/seatvault/reservation-engine/src/internal/identity"

	"github.com/seatvault/reservation-engine/src/delivery/rest/middlewares"
	"github.com/seatvault/reservation-engine/src/utils"
)

// ReservationController exposes the Reservation Engine's operations
// over HTTP, one handler per spec.md §4.6 operation.
type ReservationController struct {
	engine *engine.Engine
	gate   *identity.Gate
	logger *utils.Logger
}

func NewReservationController(e *engine.Engine, gate *identity.Gate, logger *utils.Logger) *ReservationController {
	return &ReservationController{engine: e, gate: gate, logger: logger}
}

// ListSeats handles GET /api/seats?entityId=&minPrice=&maxPrice=
func (c *ReservationController) ListSeats(w http.ResponseWriter, r *http.Request) {
	rc, err := middlewares.AuthenticateUser(c.gate, r, nil)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	entityID := r.URL.Query().Get("entityId")
	if entityID == "" {
		middlewares.WriteError(w, validationError("entityId is required"))
		return
	}

	priceRange := parsePriceRange(r)

	seats, err := c.engine.ListSeats(r.Context(), rc.Tenant.ID, entityID, priceRange)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	middlewares.WriteJSON(w, map[string]interface{}{
		"seats":    seats,
		"count":    len(seats),
		"entityId": entityID,
	})
}

type reserveRequest struct {
	SeatID string `json:"seatId" validate:"required"`
	identity.ExternalUserFields
}

// Reserve handles POST /api/reserve
func (c *ReservationController) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middlewares.WriteError(w, validationError("invalid request body"))
		return
	}

	if err := validateStruct(&req); err != nil {
		middlewares.WriteError(w, err)
		return
	}

	rc, err := middlewares.AuthenticateUser(c.gate, r, &req.ExternalUserFields)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	result, err := c.engine.Reserve(r.Context(), rc.Tenant, rc.User, req.SeatID)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	middlewares.WriteJSON(w, map[string]interface{}{
		"reservationToken": result.ReservationToken,
		"expiresAt":        result.ExpiresAt,
		"ttl":              result.TTLSeconds,
		"seat":             result.Seat,
	})
}

type confirmRequest struct {
	ReservationToken string `json:"reservationToken" validate:"required"`
	PaymentID        string `json:"paymentId"`
	OrderID          string `json:"orderId"`
	Signature        string `json:"signature"`
	identity.ExternalUserFields
}

// Confirm handles POST /api/confirm
func (c *ReservationController) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middlewares.WriteError(w, validationError("invalid request body"))
		return
	}

	if err := validateStruct(&req); err != nil {
		middlewares.WriteError(w, err)
		return
	}

	rc, err := middlewares.AuthenticateUser(c.gate, r, &req.ExternalUserFields)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	booking, err := c.engine.Confirm(r.Context(), rc.User, engine.ConfirmInput{
		ReservationToken: req.ReservationToken,
		PaymentID:        req.PaymentID,
		OrderID:          req.OrderID,
		Signature:        req.Signature,
	})
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	middlewares.WriteJSON(w, map[string]interface{}{
		"bookingId": booking.ID,
		"booking":   booking,
	})
}

type createOrderRequest struct {
	ReservationToken string  `json:"reservationToken" validate:"required"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	identity.ExternalUserFields
}

// CreateOrder handles POST /api/create-order
func (c *ReservationController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middlewares.WriteError(w, validationError("invalid request body"))
		return
	}

	if err := validateStruct(&req); err != nil {
		middlewares.WriteError(w, err)
		return
	}

	rc, err := middlewares.AuthenticateUser(c.gate, r, &req.ExternalUserFields)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	order, err := c.engine.CreateOrder(r.Context(), rc.Tenant.ID, rc.User, req.ReservationToken, req.Amount, req.Currency)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	middlewares.WriteJSON(w, order)
}

type releaseRequest struct {
	ReservationToken string `json:"reservationToken" validate:"required"`
	identity.ExternalUserFields
}

// Release handles POST /api/release
func (c *ReservationController) Release(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middlewares.WriteError(w, validationError("invalid request body"))
		return
	}

	if err := validateStruct(&req); err != nil {
		middlewares.WriteError(w, err)
		return
	}

	rc, err := middlewares.AuthenticateUser(c.gate, r, &req.ExternalUserFields)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	if err := c.engine.Release(r.Context(), rc.User, req.ReservationToken); err != nil {
		middlewares.WriteError(w, err)
		return
	}

	middlewares.WriteJSON(w, map[string]interface{}{"status": "released"})
}

// MyBookings handles GET /api/my-bookings?page=&limit=
func (c *ReservationController) MyBookings(w http.ResponseWriter, r *http.Request) {
	rc, err := middlewares.AuthenticateUser(c.gate, r, nil)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := c.engine.ListBookings(r.Context(), rc.Tenant.ID, rc.User.ID, page, limit)
	if err != nil {
		middlewares.WriteError(w, err)
		return
	}

	middlewares.WriteJSON(w, result)
}

func parsePriceRange(r *http.Request) domain_seat.PriceRange {
	var pr domain_seat.PriceRange
	if raw := r.URL.Query().Get("minPrice"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			pr.Min = &v
		}
	}
	if raw := r.URL.Query().Get("maxPrice"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			pr.Max = &v
		}
	}
	return pr
}
