package httpapi

import (
	"net/http"
	"time"

	appBooking "github.com/negotiation-core/negotiation-core/internal/application/booking"
	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/booking"
)

type bookingCreateRequest struct {
	PickupLocation   string         `json:"pickupLocation"`
	DeliveryLocation string         `json:"deliveryLocation"`
	WindowStart      time.Time      `json:"windowStart"`
	WindowEnd        time.Time      `json:"windowEnd"`
	Items            []booking.Item `json:"items,omitempty"`
}

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request) {
	act := actorFromContext(r.Context())
	if act.Role != actor.RoleCustomer {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "only customers create bookings")
		return
	}
	var req bookingCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	b, eff, err := s.bookingSvc.Create(r.Context(), appBooking.CreateParams{
		CustomerID:       act.UserID,
		PickupLocation:   req.PickupLocation,
		DeliveryLocation: req.DeliveryLocation,
		WindowStart:      req.WindowStart,
		WindowEnd:        req.WindowEnd,
		Items:            req.Items,
	})
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request) {
	var status *booking.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := booking.Status(v)
		status = &st
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	bookings, err := s.bookingSvc.List(r.Context(), status, limit, offset)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookingId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid bookingId")
		return
	}
	b, err := s.bookingSvc.Get(r.Context(), id)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) transitionBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookingId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid bookingId")
		return
	}
	var req struct {
		Target booking.Status `json:"target"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	b, eff, err := s.bookingSvc.RequestTransition(r.Context(), id, req.Target, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}
