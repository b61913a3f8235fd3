package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appAudit "github.com/negotiation-core/negotiation-core/internal/application/audit"
)

func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	params := appAudit.QueryParams{
		Limit: 50,
	}
	if v := r.URL.Query().Get("targetType"); v != "" {
		params.TargetType = &v
	}
	if v := r.URL.Query().Get("targetId"); v != "" {
		params.TargetID = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		params.Action = &v
	}
	if v := r.URL.Query().Get("actor"); v != "" {
		params.Actor = &v
	}
	if v := r.URL.Query().Get("riskLevel"); v != "" {
		params.RiskLevel = &v
	}
	if v := r.URL.Query().Get("startTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.StartTime = &t
		}
	}
	if v := r.URL.Query().Get("endTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.EndTime = &t
		}
	}
	if v := r.URL.Query().Get("cursor"); v != "" {
		params.Cursor = &v
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			params.Limit = l
		}
	}

	res, err := s.auditSvc.Query(r.Context(), params)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "auditId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid auditId")
		return
	}
	log, err := s.auditSvc.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if log == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "audit log not found")
		return
	}
	respondJSON(w, http.StatusOK, log)
}

func (s *Server) verifyAudit(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "auditId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid auditId")
		return
	}
	result, err := s.auditSvc.VerifyIntegrity(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "audit log not found")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getAuditTargetHistory(w http.ResponseWriter, r *http.Request) {
	targetType := chi.URLParam(r, "targetType")
	targetID := chi.URLParam(r, "targetId")
	if targetType == "" || targetID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "targetType and targetId are required")
		return
	}
	logs, err := s.auditSvc.GetTargetHistory(r.Context(), targetType, targetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
