package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-core/negotiation-core/internal/domain/booking"
)

// BookingRepository implements booking.Repository.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (booking_id, customer_id, transport_id, status, pickup_location, delivery_location, window_start, window_end, agreed_price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, b.BookingID, b.CustomerID, b.TransportID, b.Status, b.PickupLocation, b.DeliveryLocation, b.WindowStart, b.WindowEnd, b.AgreedPrice, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	for _, item := range b.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO booking_items (booking_id, name, quantity, is_fragile, requires_disassembly, requires_packaging, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, b.BookingID, item.Name, item.Quantity, item.IsFragile, item.RequiresDisassembly, item.RequiresPackaging, item.Notes)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const bookingColumns = `id, booking_id, customer_id, transport_id, status, pickup_location, delivery_location, window_start, window_end, agreed_price, created_at, updated_at`

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	if err := row.Scan(&b.ID, &b.BookingID, &b.CustomerID, &b.TransportID, &b.Status, &b.PickupLocation, &b.DeliveryLocation, &b.WindowStart, &b.WindowEnd, &b.AgreedPrice, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1`, bookingID)
	b, err := scanBooking(row)
	if err != nil || b == nil {
		return b, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, quantity, is_fragile, requires_disassembly, requires_packaging, notes
		FROM booking_items WHERE booking_id=$1 ORDER BY id
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item booking.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.IsFragile, &item.RequiresDisassembly, &item.RequiresPackaging, &item.Notes); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, item)
	}
	return b, rows.Err()
}

func (r *BookingRepository) List(ctx context.Context, status *booking.Status, limit, offset int) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status=$1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bookings []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE bookings SET transport_id=$1, status=$2, agreed_price=$3, updated_at=$4
		WHERE booking_id=$5
	`, b.TransportID, b.Status, b.AgreedPrice, b.UpdatedAt, b.BookingID)
	return err
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status booking.Status, updatedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE bookings SET status=$1, updated_at=$2 WHERE booking_id=$3
	`, status, updatedAt, bookingID)
	return err
}
