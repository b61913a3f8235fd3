package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appAudit "github.com/negotiation-core/negotiation-core/internal/application/audit"
	appBooking "github.com/negotiation-core/negotiation-core/internal/application/booking"
	appDispute "github.com/negotiation-core/negotiation-core/internal/application/dispute"
	"github.com/negotiation-core/negotiation-core/internal/application/effects"
	appException "github.com/negotiation-core/negotiation-core/internal/application/exception"
	appNegotiation "github.com/negotiation-core/negotiation-core/internal/application/negotiation"
	appNotification "github.com/negotiation-core/negotiation-core/internal/application/notification"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	bookingSvc      *appBooking.Service
	negotiationSvc  *appNegotiation.Service
	disputeSvc      *appDispute.Service
	exceptionSvc    *appException.Service
	notificationSvc *appNotification.Service
	auditSvc        *appAudit.Service
	applier         *effects.Applier
	sseHub          *sse.Hub
	clock           clock.Clock
	jwtSecret       []byte
}

func NewServer(
	bookingSvc *appBooking.Service,
	negotiationSvc *appNegotiation.Service,
	disputeSvc *appDispute.Service,
	exceptionSvc *appException.Service,
	notificationSvc *appNotification.Service,
	auditSvc *appAudit.Service,
	applier *effects.Applier,
	sseHub *sse.Hub,
	clk clock.Clock,
	jwtSecret []byte,
) *Server {
	return &Server{
		bookingSvc:      bookingSvc,
		negotiationSvc:  negotiationSvc,
		disputeSvc:      disputeSvc,
		exceptionSvc:    exceptionSvc,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		applier:         applier,
		sseHub:          sseHub,
		clock:           clk,
		jwtSecret:       jwtSecret,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", s.createBooking)
				r.Get("/", s.listBookings)
				r.Get("/{bookingId}", s.getBooking)
				r.Post("/{bookingId}/transition", s.transitionBooking)

				r.Post("/{bookingId}/quotations", s.submitQuotation)
				r.Get("/{bookingId}/quotations", s.listQuotations)
				r.Get("/{bookingId}/disputes", s.listBookingDisputes)
			})

			r.Route("/quotations", func(r chi.Router) {
				r.Get("/{quotationId}", s.getQuotation)
				r.Post("/{quotationId}/accept", s.acceptQuotation)
				r.Post("/{quotationId}/reject", s.rejectQuotation)
				r.Post("/{quotationId}/counter-offers", s.submitCounterOffer)
				r.Get("/{quotationId}/counter-offers", s.listCounterOffers)
			})

			r.Route("/counter-offers", func(r chi.Router) {
				r.Post("/{counterOfferId}/respond", s.respondToCounterOffer)
			})

			r.Route("/disputes", func(r chi.Router) {
				r.Post("/", s.fileDispute)
				r.With(s.requireManager).Get("/", s.listDisputes)
				r.Get("/{disputeId}", s.getDispute)
				r.Post("/{disputeId}/messages", s.postDisputeMessage)
				r.Get("/{disputeId}/messages", s.listDisputeMessages)
				r.Post("/{disputeId}/evidence", s.attachDisputeEvidence)
				r.Get("/{disputeId}/evidence", s.listDisputeEvidence)
				r.With(s.requireManager).Post("/{disputeId}/transition", s.transitionDispute)
				r.With(s.requireManager).Post("/{disputeId}/resolve", s.resolveDispute)
			})

			r.Route("/exceptions", func(r chi.Router) {
				r.Post("/", s.reportException)
				r.Get("/", s.listExceptions)
				r.Get("/{exceptionId}", s.getException)
				r.Post("/{exceptionId}/start", s.startExceptionProgress)
				r.Post("/{exceptionId}/escalate", s.escalateException)
				r.Post("/{exceptionId}/resolve", s.resolveException)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.listNotifications)
				r.Post("/{notificationId}/read", s.markNotificationRead)
				r.Get("/sse", s.sseEndpoint)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireManager)
				r.Get("/audit", s.queryAudit)
				r.Get("/audit/{auditId}", s.getAudit)
				r.Get("/audit/{auditId}/verify", s.verifyAudit)
				r.Get("/audit/targets/{targetType}/{targetId}", s.getAuditTargetHistory)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondFault maps typed command faults to HTTP statuses. Untyped
// errors are internal.
func respondFault(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	switch kind {
	case fault.KindNotFound:
		status, code = http.StatusNotFound, string(kind)
	case fault.KindInvalidState:
		status, code = http.StatusConflict, string(kind)
	case fault.KindInvalidArgument:
		status, code = http.StatusBadRequest, string(kind)
	case fault.KindForbidden:
		status, code = http.StatusForbidden, string(kind)
	case fault.KindExpired:
		status, code = http.StatusGone, string(kind)
	case fault.KindConflict:
		status, code = http.StatusConflict, string(kind)
	}
	respondError(w, status, code, err.Error())
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
