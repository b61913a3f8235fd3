package httpapi

import (
	"net/http"

	"github.com/negotiation-core/negotiation-core/internal/domain/quotation"
)

// counterOfferView decorates a counter-offer with the remaining
// response window, derived at query time and never stored.
type counterOfferView struct {
	*quotation.CounterOffer
	HoursUntilExpiration *float64 `json:"hoursUntilExpiration,omitempty"`
}

func (s *Server) counterOfferView(c *quotation.CounterOffer) counterOfferView {
	return counterOfferView{
		CounterOffer:         c,
		HoursUntilExpiration: c.HoursUntilExpiration(s.clock.Now()),
	}
}

type quotationSubmitRequest struct {
	Price   float64 `json:"price"`
	Message *string `json:"message,omitempty"`
}

func (s *Server) submitQuotation(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseUUIDParam(r, "bookingId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid bookingId")
		return
	}
	var req quotationSubmitRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	q, eff, err := s.negotiationSvc.SubmitQuotation(r.Context(), bookingID, req.Price, req.Message, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

func (s *Server) listQuotations(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseUUIDParam(r, "bookingId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid bookingId")
		return
	}
	quotations, err := s.negotiationSvc.ListQuotations(r.Context(), bookingID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"quotations": quotations})
}

func (s *Server) getQuotation(w http.ResponseWriter, r *http.Request) {
	quotationID, err := parseUUIDParam(r, "quotationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid quotationId")
		return
	}
	q, err := s.negotiationSvc.GetQuotation(r.Context(), quotationID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) acceptQuotation(w http.ResponseWriter, r *http.Request) {
	quotationID, err := parseUUIDParam(r, "quotationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid quotationId")
		return
	}
	q, eff, err := s.negotiationSvc.AcceptQuotation(r.Context(), quotationID, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) rejectQuotation(w http.ResponseWriter, r *http.Request) {
	quotationID, err := parseUUIDParam(r, "quotationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid quotationId")
		return
	}
	q, eff, err := s.negotiationSvc.RejectQuotation(r.Context(), quotationID, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type counterOfferSubmitRequest struct {
	OfferedPrice float64 `json:"offeredPrice"`
	Reason       *string `json:"reason,omitempty"`
}

func (s *Server) submitCounterOffer(w http.ResponseWriter, r *http.Request) {
	quotationID, err := parseUUIDParam(r, "quotationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid quotationId")
		return
	}
	var req counterOfferSubmitRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	c, eff, err := s.negotiationSvc.SubmitCounterOffer(r.Context(), quotationID, req.OfferedPrice, req.Reason, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s.counterOfferView(c))
}

func (s *Server) listCounterOffers(w http.ResponseWriter, r *http.Request) {
	quotationID, err := parseUUIDParam(r, "quotationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid quotationId")
		return
	}
	offers, err := s.negotiationSvc.ListCounterOffers(r.Context(), quotationID)
	if err != nil {
		respondFault(w, err)
		return
	}
	out := make([]counterOfferView, 0, len(offers))
	for _, c := range offers {
		out = append(out, s.counterOfferView(c))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"counterOffers": out})
}

type counterOfferRespondRequest struct {
	Accept  bool    `json:"accept"`
	Message *string `json:"message,omitempty"`
}

func (s *Server) respondToCounterOffer(w http.ResponseWriter, r *http.Request) {
	counterOfferID, err := parseUUIDParam(r, "counterOfferId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid counterOfferId")
		return
	}
	var req counterOfferRespondRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	c, eff, err := s.negotiationSvc.RespondToCounterOffer(r.Context(), counterOfferID, req.Accept, req.Message, actorFromContext(r.Context()))
	// Lazy expiry persists a fix and emits effects together with the
	// EXPIRED fault; apply them regardless of the outcome.
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.counterOfferView(c))
}
