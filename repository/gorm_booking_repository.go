package repository

import (
	"context"
	"errors"
	"fmt"

	bookingModel "guesthouse-booking/models/booking"
	roomModel "guesthouse-booking/models/room"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on PostgreSQL. Conflict-checked transactions
// serialize on a SELECT ... FOR UPDATE of the room row.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened database handle. The handle must be opened
// with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for plumbing that is not booking-critical
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

var lockingUpdate = clause.Locking{Strength: "UPDATE"}

func (t *gormTx) LockRoom(ctx context.Context, roomID uint) (*roomModel.Room, error) {
	var r roomModel.Room
	err := t.db.WithContext(ctx).
		Clauses(lockingUpdate).
		First(&r, roomID).Error
	if err != nil {
		return nil, translate(err, "lock room")
	}
	return &r, nil
}

func (t *gormTx) LockBooking(ctx context.Context, id uint) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	err := t.db.WithContext(ctx).
		Clauses(lockingUpdate).
		First(&b, id).Error
	if err != nil {
		return nil, translate(err, "lock booking")
	}
	return &b, nil
}

func (t *gormTx) HasOverlap(ctx context.Context, q OverlapQuery) (bool, error) {
	return hasOverlap(t.db.WithContext(ctx), q)
}

func (t *gormTx) CreateBooking(ctx context.Context, b *bookingModel.Booking) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error; err != nil {
		return translate(err, "create booking")
	}
	return nil
}

func (t *gormTx) SaveBooking(ctx context.Context, b *bookingModel.Booking) error {
	result := t.db.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"status":               b.Status,
			"needs_reconciliation": b.NeedsReconciliation,
			"flag_reason":          b.FlagReason,
			"flagged_at":           b.FlaggedAt,
		})
	if result.Error != nil {
		return translate(result.Error, "save booking")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) AppendStatusEvent(ctx context.Context, ev *bookingModel.BookingStatusEvent) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(ev).Error; err != nil {
		return translate(err, "append status event")
	}
	return nil
}

func (s *GormStore) FindRoom(ctx context.Context, id uint) (*roomModel.Room, error) {
	var r roomModel.Room
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err, "find room")
	}
	return &r, nil
}

func (s *GormStore) FindBookingByID(ctx context.Context, id uint) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err, "find booking")
	}
	return &b, nil
}

func (s *GormStore) FindBookingByPublicID(ctx context.Context, publicID string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.db.WithContext(ctx).Where("public_id = ?", publicID).First(&b).Error; err != nil {
		return nil, translate(err, "find booking by public id")
	}
	return &b, nil
}

func (s *GormStore) FindBookingByReference(ctx context.Context, reference string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.db.WithContext(ctx).Where("payment_reference = ?", reference).First(&b).Error; err != nil {
		return nil, translate(err, "find booking by reference")
	}
	return &b, nil
}

func (s *GormStore) HasOverlap(ctx context.Context, q OverlapQuery) (bool, error) {
	return hasOverlap(s.db.WithContext(ctx), q)
}

func (s *GormStore) ListOverlapping(ctx context.Context, q OverlapQuery) ([]bookingModel.Booking, error) {
	var out []bookingModel.Booking
	if err := overlapScope(s.db.WithContext(ctx), q).Order("check_in ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	return out, nil
}

func (s *GormStore) ListBookings(ctx context.Context, f BookingFilter) ([]bookingModel.Booking, int64, error) {
	page, size := NormalizePage(f)

	qb := s.db.WithContext(ctx).Model(&bookingModel.Booking{})
	if f.Status != "" {
		qb = qb.Where("status = ?", f.Status)
	}
	if f.RoomID != 0 {
		qb = qb.Where("room_id = ?", f.RoomID)
	}
	if f.From != nil {
		qb = qb.Where("check_out > ?", *f.From)
	}
	if f.To != nil {
		qb = qb.Where("check_in < ?", *f.To)
	}
	if f.Flagged {
		qb = qb.Where("needs_reconciliation = ?", true)
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	var out []bookingModel.Booking
	err := qb.Order("created_at DESC").Order("id DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return out, total, nil
}

func (s *GormStore) ListStatusEvents(ctx context.Context, bookingID uint) ([]bookingModel.BookingStatusEvent, error) {
	var out []bookingModel.BookingStatusEvent
	err := s.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	return out, nil
}

func (s *GormStore) SetPaymentReference(ctx context.Context, bookingID uint, provider, reference, authorizationURL string) error {
	result := s.db.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND payment_reference IS NULL", bookingID).
		Updates(map[string]interface{}{
			"payment_reference": reference,
			"payment_provider":  provider,
			"authorization_url": authorizationURL,
		})
	if result.Error != nil {
		return translate(result.Error, "set payment reference")
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := s.db.WithContext(ctx).Model(&bookingModel.Booking{}).Where("id = ?", bookingID).Count(&exists).Error; err != nil {
			return fmt.Errorf("check booking existence: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrReferenceAlreadySet
	}
	return nil
}

func (s *GormStore) DeleteBooking(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&bookingModel.Booking{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func overlapScope(db *gorm.DB, q OverlapQuery) *gorm.DB {
	qb := db.Model(&bookingModel.Booking{}).
		Where("room_id = ?", q.RoomID).
		Where("check_in < ? AND check_out > ?", q.CheckOut, q.CheckIn) // half-open overlap
	if len(q.Statuses) > 0 {
		qb = qb.Where("status IN ?", q.Statuses)
	}
	if q.ExcludeBookingID != 0 {
		qb = qb.Where("id <> ?", q.ExcludeBookingID)
	}
	return qb
}

func hasOverlap(db *gorm.DB, q OverlapQuery) (bool, error) {
	var ids []uint
	if err := overlapScope(db, q).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, fmt.Errorf("overlap query: %w", err)
	}
	return len(ids) > 0, nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
