package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-core/negotiation-core/internal/domain/quotation"
)

// QuotationRepository implements quotation.Repository.
type QuotationRepository struct {
	pool *pgxpool.Pool
}

func NewQuotationRepository(pool *pgxpool.Pool) *QuotationRepository {
	return &QuotationRepository{pool: pool}
}

const quotationColumns = `id, quotation_id, booking_id, transport_id, price, reference_price, message, status, created_at, updated_at`

func scanQuotation(row pgx.Row) (*quotation.Quotation, error) {
	var q quotation.Quotation
	if err := row.Scan(&q.ID, &q.QuotationID, &q.BookingID, &q.TransportID, &q.Price, &q.ReferencePrice, &q.Message, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (r *QuotationRepository) Create(ctx context.Context, q *quotation.Quotation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO quotations (quotation_id, booking_id, transport_id, price, reference_price, message, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, q.QuotationID, q.BookingID, q.TransportID, q.Price, q.ReferencePrice, q.Message, q.Status, q.CreatedAt, q.UpdatedAt)
	return err
}

func (r *QuotationRepository) GetByID(ctx context.Context, quotationID uuid.UUID) (*quotation.Quotation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE quotation_id=$1`, quotationID)
	return scanQuotation(row)
}

func (r *QuotationRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*quotation.Quotation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE booking_id=$1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quotations []*quotation.Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, q)
	}
	return quotations, rows.Err()
}

func (r *QuotationRepository) Update(ctx context.Context, q *quotation.Quotation) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE quotations SET price=$1, reference_price=$2, message=$3, status=$4, updated_at=$5
		WHERE quotation_id=$6
	`, q.Price, q.ReferencePrice, q.Message, q.Status, q.UpdatedAt, q.QuotationID)
	return err
}

func (r *QuotationRepository) Accept(ctx context.Context, quotationID uuid.UUID, bookingID uuid.UUID, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE quotations SET status=$1, updated_at=$2 WHERE quotation_id=$3
	`, quotation.StatusAccepted, now, quotationID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE quotations SET status=$1, updated_at=$2
		WHERE booking_id=$3 AND quotation_id<>$4 AND status=$5
	`, quotation.StatusSuperseded, now, bookingID, quotationID, quotation.StatusPending)
	if err != nil {
		return err
	}
	// Settling the negotiation freezes every open counter-offer on the
	// booking, the accepted quotation's own included.
	_, err = tx.Exec(ctx, `
		UPDATE counter_offers SET status=$1
		WHERE status=$2 AND quotation_id IN (
			SELECT quotation_id FROM quotations WHERE booking_id=$3
		)
	`, quotation.StatusSuperseded, quotation.StatusPending, bookingID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CounterOfferRepository implements quotation.CounterOfferRepository.
type CounterOfferRepository struct {
	pool *pgxpool.Pool
}

func NewCounterOfferRepository(pool *pgxpool.Pool) *CounterOfferRepository {
	return &CounterOfferRepository{pool: pool}
}

const counterOfferColumns = `id, counter_offer_id, quotation_id, original_price, offered_price, price_difference, percentage_change, reason, status, offered_by_user_id, offered_by_role, created_at, expires_at, responded_at, responded_by_user_id, response_message`

func scanCounterOffer(row pgx.Row) (*quotation.CounterOffer, error) {
	var c quotation.CounterOffer
	if err := row.Scan(&c.ID, &c.CounterOfferID, &c.QuotationID, &c.OriginalPrice, &c.OfferedPrice, &c.PriceDifference, &c.PercentageChange, &c.Reason, &c.Status, &c.OfferedByUserID, &c.OfferedByRole, &c.CreatedAt, &c.ExpiresAt, &c.RespondedAt, &c.RespondedByID, &c.ResponseMessage); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CounterOfferRepository) Create(ctx context.Context, c *quotation.CounterOffer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE counter_offers SET status=$1 WHERE quotation_id=$2 AND status=$3
	`, quotation.StatusSuperseded, c.QuotationID, quotation.StatusPending)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO counter_offers (counter_offer_id, quotation_id, original_price, offered_price, price_difference, percentage_change, reason, status, offered_by_user_id, offered_by_role, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, c.CounterOfferID, c.QuotationID, c.OriginalPrice, c.OfferedPrice, c.PriceDifference, c.PercentageChange, c.Reason, c.Status, c.OfferedByUserID, c.OfferedByRole, c.CreatedAt, c.ExpiresAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CounterOfferRepository) GetByID(ctx context.Context, counterOfferID uuid.UUID) (*quotation.CounterOffer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+counterOfferColumns+` FROM counter_offers WHERE counter_offer_id=$1`, counterOfferID)
	return scanCounterOffer(row)
}

func (r *CounterOfferRepository) ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]*quotation.CounterOffer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+counterOfferColumns+` FROM counter_offers WHERE quotation_id=$1 ORDER BY created_at`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCounterOffers(rows)
}

func (r *CounterOfferRepository) Latest(ctx context.Context, quotationID uuid.UUID) (*quotation.CounterOffer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+counterOfferColumns+` FROM counter_offers
		WHERE quotation_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1
	`, quotationID)
	return scanCounterOffer(row)
}

func (r *CounterOfferRepository) Update(ctx context.Context, c *quotation.CounterOffer) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE counter_offers SET status=$1, responded_at=$2, responded_by_user_id=$3, response_message=$4
		WHERE counter_offer_id=$5
	`, c.Status, c.RespondedAt, c.RespondedByID, c.ResponseMessage, c.CounterOfferID)
	return err
}

func (r *CounterOfferRepository) Respond(ctx context.Context, c *quotation.CounterOffer, newReferencePrice *float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE counter_offers SET status=$1, responded_at=$2, responded_by_user_id=$3, response_message=$4
		WHERE counter_offer_id=$5
	`, c.Status, c.RespondedAt, c.RespondedByID, c.ResponseMessage, c.CounterOfferID)
	if err != nil {
		return err
	}
	if newReferencePrice != nil {
		_, err = tx.Exec(ctx, `
			UPDATE quotations SET reference_price=$1, updated_at=$2 WHERE quotation_id=$3
		`, *newReferencePrice, c.RespondedAt, c.QuotationID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *CounterOfferRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*quotation.CounterOffer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+counterOfferColumns+` FROM counter_offers
		WHERE status=$1 AND expires_at<=$2 ORDER BY expires_at LIMIT $3
	`, quotation.StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCounterOffers(rows)
}

func collectCounterOffers(rows pgx.Rows) ([]*quotation.CounterOffer, error) {
	var offers []*quotation.CounterOffer
	for rows.Next() {
		c, err := scanCounterOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, c)
	}
	return offers, rows.Err()
}
