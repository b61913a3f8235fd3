package audit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/negotiation-core/negotiation-core/internal/domain/audit"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
)

// Service handles audit log operations
type Service struct {
	repo    audit.Repository
	clock   clock.Clock
	logger  zerolog.Logger
	signKey []byte
}

// NewService creates a new audit service
func NewService(repo audit.Repository, clk clock.Clock, logger zerolog.Logger, signKey []byte) *Service {
	return &Service{
		repo:    repo,
		clock:   clk,
		signKey: signKey,
		logger:  logger.With().Str("service", "audit").Logger(),
	}
}

// Log appends an audit record asynchronously. Delivery failure is
// logged, never propagated back to the command that produced it.
func (s *Service) Log(ctx context.Context, rec effect.AuditRecord) {
	go func() {
		if err := s.LogSync(context.Background(), rec); err != nil {
			s.logger.Error().Err(err).
				Str("targetType", string(rec.TargetType)).
				Str("targetId", rec.TargetID).
				Str("action", string(rec.Action)).
				Msg("failed to create audit log")
		}
	}()
}

// LogSync appends an audit record synchronously
func (s *Service) LogSync(ctx context.Context, rec effect.AuditRecord) error {
	auditLog, err := audit.NewAuditLog(rec, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	if len(s.signKey) > 0 {
		sig, err := audit.SignAuditLog(auditLog, s.signKey)
		if err != nil {
			return fmt.Errorf("failed to sign audit log: %w", err)
		}
		auditLog.Signature = sig
	}

	if err := s.repo.Create(ctx, auditLog); err != nil {
		return fmt.Errorf("failed to save audit log: %w", err)
	}

	s.logger.Debug().
		Str("auditId", auditLog.AuditID.String()).
		Str("targetType", string(auditLog.TargetType)).
		Str("targetId", auditLog.TargetID).
		Str("action", string(auditLog.Action)).
		Str("actor", auditLog.Actor).
		Str("riskLevel", string(auditLog.RiskLevel)).
		Msg("audit log created")

	// Alert on high-risk operations
	if auditLog.RiskLevel == audit.RiskLevelHigh || auditLog.RiskLevel == audit.RiskLevelCritical {
		s.logger.Warn().
			Str("auditId", auditLog.AuditID.String()).
			Str("targetType", string(auditLog.TargetType)).
			Str("targetId", auditLog.TargetID).
			Str("action", string(auditLog.Action)).
			Str("actor", auditLog.Actor).
			Str("riskLevel", string(auditLog.RiskLevel)).
			Msg("high-risk operation detected")
	}

	return nil
}

// QueryParams represents query parameters for audit logs
type QueryParams struct {
	TargetType *string
	TargetID   *string
	Action     *string
	Actor      *string
	RiskLevel  *string
	StartTime  *time.Time
	EndTime    *time.Time
	Cursor     *string
	Limit      int
}

// QueryResult represents the result of an audit log query
type QueryResult struct {
	Logs       []*audit.AuditLog `json:"logs"`
	Pagination Pagination        `json:"pagination"`
}

// Pagination holds pagination information
type Pagination struct {
	Cursor  *string `json:"cursor,omitempty"`
	HasMore bool    `json:"hasMore"`
	Count   int     `json:"count"`
}

// Query retrieves audit logs based on parameters
func (s *Service) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 200 {
		params.Limit = 200
	}

	var cursor *audit.Cursor
	if params.Cursor != nil && *params.Cursor != "" {
		c, err := decodeCursor(*params.Cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursor = c
	}

	filter := audit.QueryFilter{
		StartTime: params.StartTime,
		EndTime:   params.EndTime,
	}
	if params.TargetType != nil {
		tt := effect.TargetType(*params.TargetType)
		filter.TargetType = &tt
	}
	if params.TargetID != nil {
		filter.TargetID = params.TargetID
	}
	if params.Action != nil {
		a := effect.Action(*params.Action)
		filter.Action = &a
	}
	if params.Actor != nil {
		filter.Actor = params.Actor
	}
	if params.RiskLevel != nil {
		rl := audit.RiskLevel(*params.RiskLevel)
		filter.RiskLevel = &rl
	}

	logs, nextCursor, err := s.repo.Query(ctx, filter, cursor, params.Limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query audit logs")
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	result := &QueryResult{
		Logs: logs,
		Pagination: Pagination{
			Count:   len(logs),
			HasMore: nextCursor != nil,
		},
	}

	if nextCursor != nil {
		encoded, err := encodeCursor(nextCursor)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to encode cursor")
		} else {
			result.Pagination.Cursor = &encoded
		}
	}

	return result, nil
}

// GetByID retrieves an audit log by its ID
func (s *Service) GetByID(ctx context.Context, auditID uuid.UUID) (*audit.AuditLog, error) {
	log, err := s.repo.GetByID(ctx, auditID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("auditId", auditID.String()).
			Msg("failed to get audit log")
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return log, nil
}

// GetTargetHistory retrieves the complete audit history for a target
func (s *Service) GetTargetHistory(ctx context.Context, targetType string, targetID string) ([]*audit.AuditLog, error) {
	tt := effect.TargetType(targetType)
	logs, err := s.repo.GetByTarget(ctx, tt, targetID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("targetType", targetType).
			Str("targetId", targetID).
			Msg("failed to get target history")
		return nil, fmt.Errorf("failed to get target history: %w", err)
	}
	return logs, nil
}

// VerifyResult reports the outcome of a signature check
type VerifyResult struct {
	AuditID  uuid.UUID `json:"auditId"`
	Verified bool      `json:"verified"`
	Message  string    `json:"message"`
}

// VerifyIntegrity verifies the signature of an audit log entry
func (s *Service) VerifyIntegrity(ctx context.Context, auditID uuid.UUID) (*VerifyResult, error) {
	log, err := s.repo.GetByID(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	if log == nil {
		return nil, nil
	}

	verified, err := audit.VerifyAuditLogSignature(log, s.signKey)
	if err != nil {
		s.logger.Error().Err(err).
			Str("auditId", auditID.String()).
			Msg("failed to verify audit log signature")
		return nil, fmt.Errorf("failed to verify signature: %w", err)
	}

	result := &VerifyResult{
		AuditID:  auditID,
		Verified: verified,
	}
	if verified {
		result.Message = "Audit log integrity verified"
	} else {
		result.Message = "Audit log signature mismatch - possible tampering detected"
		s.logger.Warn().
			Str("auditId", auditID.String()).
			Msg("audit log signature verification failed")
	}

	return result, nil
}

// encodeCursor encodes a cursor to base64 string
func encodeCursor(c *audit.Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// decodeCursor decodes a base64 string to cursor
func decodeCursor(s string) (*audit.Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	var c audit.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
