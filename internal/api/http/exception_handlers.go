package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	appException "github.com/negotiation-core/negotiation-core/internal/application/exception"
	"github.com/negotiation-core/negotiation-core/internal/domain/exception"
)

type exceptionReportRequest struct {
	Title         string             `json:"title"`
	ExceptionType string             `json:"type"`
	Description   string             `json:"description"`
	Priority      exception.Priority `json:"priority"`
	BookingID     *uuid.UUID         `json:"bookingId,omitempty"`
	IncidentID    *int64             `json:"incidentId,omitempty"`
	AssignedTo    *string            `json:"assignedTo,omitempty"`
	Metadata      json.RawMessage    `json:"metadata,omitempty"`
}

func (s *Server) reportException(w http.ResponseWriter, r *http.Request) {
	var req exceptionReportRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	e, eff, err := s.exceptionSvc.Report(r.Context(), appException.ReportParams{
		Title:         req.Title,
		ExceptionType: req.ExceptionType,
		Description:   req.Description,
		Priority:      req.Priority,
		BookingID:     req.BookingID,
		IncidentID:    req.IncidentID,
		AssignedTo:    req.AssignedTo,
		Metadata:      req.Metadata,
	}, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) listExceptions(w http.ResponseWriter, r *http.Request) {
	var status *exception.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := exception.Status(v)
		status = &st
	}
	var priority *exception.Priority
	if v := r.URL.Query().Get("priority"); v != "" {
		p := exception.Priority(v)
		priority = &p
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	exceptions, err := s.exceptionSvc.List(r.Context(), status, priority, limit, offset)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"exceptions": exceptions})
}

func (s *Server) getException(w http.ResponseWriter, r *http.Request) {
	exceptionID, err := parseUUIDParam(r, "exceptionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid exceptionId")
		return
	}
	e, err := s.exceptionSvc.Get(r.Context(), exceptionID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) startExceptionProgress(w http.ResponseWriter, r *http.Request) {
	exceptionID, err := parseUUIDParam(r, "exceptionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid exceptionId")
		return
	}
	var req struct {
		AssignTo *string `json:"assignTo,omitempty"`
	}
	_ = decodeBody(r, &req)

	e, eff, err := s.exceptionSvc.StartProgress(r.Context(), exceptionID, req.AssignTo, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) escalateException(w http.ResponseWriter, r *http.Request) {
	exceptionID, err := parseUUIDParam(r, "exceptionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid exceptionId")
		return
	}
	var req struct {
		Priority *exception.Priority `json:"priority,omitempty"`
	}
	_ = decodeBody(r, &req)

	e, eff, err := s.exceptionSvc.Escalate(r.Context(), exceptionID, req.Priority, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) resolveException(w http.ResponseWriter, r *http.Request) {
	exceptionID, err := parseUUIDParam(r, "exceptionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid exceptionId")
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	e, eff, err := s.exceptionSvc.Resolve(r.Context(), exceptionID, req.Notes, actorFromContext(r.Context()))
	s.applier.Apply(r.Context(), eff)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}
