package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	appDispute "github.com/negotiation-core/negotiation-core/internal/application/dispute"
	"github.com/negotiation-core/negotiation-core/internal/domain/dispute"
)

type disputeFileRequest struct {
	BookingID           uuid.UUID    `json:"bookingId"`
	DisputeType         dispute.Type `json:"disputeType"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	RequestedResolution *string      `json:"requestedResolution,omitempty"`
}

func (s *Server) fileDispute(w http.ResponseWriter, r *http.Request) {
	var req disputeFileRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	d, eff, err := s.disputeSvc.File(r.Context(), appDispute.FileParams{
		BookingID:           req.BookingID,
		DisputeType:         req.DisputeType,
		Title:               req.Title,
		Description:         req.Description,
		RequestedResolution: req.RequestedResolution,
	}, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) listDisputes(w http.ResponseWriter, r *http.Request) {
	var status *dispute.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := dispute.Status(v)
		status = &st
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	disputes, err := s.disputeSvc.List(r.Context(), status, limit, offset)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"disputes": disputes})
}

func (s *Server) listBookingDisputes(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseUUIDParam(r, "bookingId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid bookingId")
		return
	}
	disputes, err := s.disputeSvc.ListByBooking(r.Context(), bookingID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"disputes": disputes})
}

func (s *Server) getDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid disputeId")
		return
	}
	d, err := s.disputeSvc.Get(r.Context(), disputeID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) postDisputeMessage(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid disputeId")
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	m, eff, err := s.disputeSvc.PostMessage(r.Context(), disputeID, req.Body, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (s *Server) listDisputeMessages(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid disputeId")
		return
	}
	messages, err := s.disputeSvc.ListMessages(r.Context(), disputeID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type disputeEvidenceRequest struct {
	EvidenceType string  `json:"evidenceType"`
	FileRef      string  `json:"fileRef"`
	Description  *string `json:"description,omitempty"`
}

func (s *Server) attachDisputeEvidence(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid disputeId")
		return
	}
	var req disputeEvidenceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	e, eff, err := s.disputeSvc.AttachEvidence(r.Context(), disputeID, appDispute.EvidenceParams{
		EvidenceType: req.EvidenceType,
		FileRef:      req.FileRef,
		Description:  req.Description,
	}, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) listDisputeEvidence(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid disputeId")
		return
	}
	evidence, err := s.disputeSvc.ListEvidence(r.Context(), disputeID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"evidence": evidence})
}

func (s *Server) transitionDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid disputeId")
		return
	}
	var req struct {
		Target   dispute.Status `json:"target"`
		AssignTo *string        `json:"assignTo,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	d, eff, err := s.disputeSvc.Transition(r.Context(), disputeID, req.Target, req.AssignTo, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) resolveDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid disputeId")
		return
	}
	var req struct {
		Outcome dispute.Status `json:"outcome"`
		Notes   string         `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	d, eff, err := s.disputeSvc.Resolve(r.Context(), disputeID, req.Outcome, req.Notes, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}
