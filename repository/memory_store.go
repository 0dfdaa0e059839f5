package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	adminModel "guesthouse-booking/models/admin"
	bookingModel "guesthouse-booking/models/booking"
	roomModel "guesthouse-booking/models/room"
)

// MemoryStore implements Store and RoomStore in process memory. Row locks
// are per-id mutexes held until the transaction ends; transactional writes
// are staged and only become visible on commit.
type MemoryStore struct {
	mu sync.Mutex

	rooms    map[uint]*roomModel.Room
	images   map[uint]*roomModel.RoomImage
	bookings map[uint]*bookingModel.Booking
	events   []bookingModel.BookingStatusEvent
	admins   map[string]*adminModel.Admin

	roomLocks    map[uint]*sync.Mutex
	bookingLocks map[uint]*sync.Mutex

	nextRoomID    uint
	nextImageID   uint
	nextBookingID uint
	nextEventID   uint
	nextAdminID   uint

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:        make(map[uint]*roomModel.Room),
		images:       make(map[uint]*roomModel.RoomImage),
		bookings:     make(map[uint]*bookingModel.Booking),
		admins:       make(map[string]*adminModel.Admin),
		roomLocks:    make(map[uint]*sync.Mutex),
		bookingLocks: make(map[uint]*sync.Mutex),
		now:          time.Now,
	}
}

// PutRoom inserts or replaces a room and returns the stored copy
func (s *MemoryStore) PutRoom(r roomModel.Room) *roomModel.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextRoomID++
		r.ID = s.nextRoomID
	} else if r.ID > s.nextRoomID {
		s.nextRoomID = r.ID
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.UpdatedAt = s.now()
	r.Images = nil
	s.rooms[r.ID] = &r
	cp := r
	return &cp
}

// AllBookings returns a snapshot of every committed booking ordered by id
func (s *MemoryStore) AllBookings() []bookingModel.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bookingModel.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) lockFor(m map[uint]*sync.Mutex, id uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := m[id]
	if !ok {
		l = &sync.Mutex{}
		m[id] = l
	}
	return l
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		s:     s,
		held:  make(map[string]bool),
		saved: make(map[uint]*bookingModel.Booking),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

type memTx struct {
	s *MemoryStore

	held    map[string]bool
	locks   []*sync.Mutex
	created []*bookingModel.Booking
	saved   map[uint]*bookingModel.Booking
	events  []bookingModel.BookingStatusEvent
}

func (t *memTx) acquire(kind string, m map[uint]*sync.Mutex, id uint) {
	key := fmt.Sprintf("%s:%d", kind, id)
	if t.held[key] {
		return
	}
	l := t.s.lockFor(m, id)
	l.Lock()
	t.held[key] = true
	t.locks = append(t.locks, l)
}

func (t *memTx) release() {
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
	t.locks = nil
}

func (t *memTx) LockRoom(ctx context.Context, roomID uint) (*roomModel.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.Lock()
	_, ok := t.s.rooms[roomID]
	t.s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	t.acquire("room", t.s.roomLocks, roomID)

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) LockBooking(ctx context.Context, id uint) (*bookingModel.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, b := range t.created {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}

	t.acquire("booking", t.s.bookingLocks, id)

	if b, ok := t.saved[id]; ok {
		cp := *b
		return &cp, nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (t *memTx) HasOverlap(ctx context.Context, q OverlapQuery) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, b := range t.s.bookings {
		if staged, ok := t.saved[id]; ok {
			b = staged
		}
		if matchesOverlap(b, q) {
			return true, nil
		}
	}
	for _, b := range t.created {
		if matchesOverlap(b, q) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateBooking(ctx context.Context, b *bookingModel.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !b.CheckIn.Before(b.CheckOut) {
		return fmt.Errorf("create booking: check_in must be before check_out")
	}
	if _, ok := t.s.rooms[b.RoomID]; !ok {
		return fmt.Errorf("create booking: room %d does not exist", b.RoomID)
	}
	for _, existing := range t.s.bookings {
		if existing.PublicID == b.PublicID {
			return fmt.Errorf("create booking: %w", ErrDuplicate)
		}
	}
	for _, staged := range t.created {
		if staged.PublicID == b.PublicID {
			return fmt.Errorf("create booking: %w", ErrDuplicate)
		}
	}

	t.s.nextBookingID++
	b.ID = t.s.nextBookingID
	now := t.s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = bookingModel.BookingStatusPending
	}
	cp := *b
	t.created = append(t.created, &cp)
	return nil
}

func (t *memTx) SaveBooking(ctx context.Context, b *bookingModel.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, staged := range t.created {
		if staged.ID == b.ID {
			applyMutable(staged, b)
			return nil
		}
	}

	staged, ok := t.saved[b.ID]
	if !ok {
		t.s.mu.Lock()
		committed, found := t.s.bookings[b.ID]
		if found {
			cp := *committed
			staged = &cp
		}
		t.s.mu.Unlock()
		if !found {
			return ErrNotFound
		}
		t.saved[b.ID] = staged
	}
	applyMutable(staged, b)
	return nil
}

func (t *memTx) AppendStatusEvent(ctx context.Context, ev *bookingModel.BookingStatusEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.events = append(t.events, *ev)
	return nil
}

func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range tx.created {
		for _, existing := range s.bookings {
			if existing.PublicID == b.PublicID {
				return fmt.Errorf("commit booking: %w", ErrDuplicate)
			}
		}
	}

	now := s.now()
	for _, b := range tx.created {
		s.bookings[b.ID] = b
	}
	for id, staged := range tx.saved {
		committed, ok := s.bookings[id]
		if !ok {
			continue
		}
		applyMutable(committed, staged)
		committed.UpdatedAt = now
	}
	for _, ev := range tx.events {
		s.nextEventID++
		ev.ID = s.nextEventID
		ev.CreatedAt = now
		s.events = append(s.events, ev)
	}
	return nil
}

// applyMutable copies the columns a transaction is allowed to rewrite
func applyMutable(dst, src *bookingModel.Booking) {
	dst.Status = src.Status
	dst.NeedsReconciliation = src.NeedsReconciliation
	dst.FlagReason = src.FlagReason
	dst.FlaggedAt = src.FlaggedAt
}

func matchesOverlap(b *bookingModel.Booking, q OverlapQuery) bool {
	if b.RoomID != q.RoomID || b.ID == q.ExcludeBookingID {
		return false
	}
	if len(q.Statuses) > 0 {
		in := false
		for _, st := range q.Statuses {
			if b.Status == st {
				in = true
				break
			}
		}
		if !in {
			return false
		}
	}
	return b.OverlapsRange(q.CheckIn, q.CheckOut)
}

func (s *MemoryStore) FindRoom(ctx context.Context, id uint) (*roomModel.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) findBooking(match func(b *bookingModel.Booking) bool) (*bookingModel.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if match(b) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindBookingByID(ctx context.Context, id uint) (*bookingModel.Booking, error) {
	return s.findBooking(func(b *bookingModel.Booking) bool { return b.ID == id })
}

func (s *MemoryStore) FindBookingByPublicID(ctx context.Context, publicID string) (*bookingModel.Booking, error) {
	return s.findBooking(func(b *bookingModel.Booking) bool { return b.PublicID == publicID })
}

func (s *MemoryStore) FindBookingByReference(ctx context.Context, reference string) (*bookingModel.Booking, error) {
	return s.findBooking(func(b *bookingModel.Booking) bool {
		return b.PaymentReference != nil && *b.PaymentReference == reference
	})
}

func (s *MemoryStore) HasOverlap(ctx context.Context, q OverlapQuery) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if matchesOverlap(b, q) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListOverlapping(ctx context.Context, q OverlapQuery) ([]bookingModel.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bookingModel.Booking
	for _, b := range s.bookings {
		if matchesOverlap(b, q) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (s *MemoryStore) ListBookings(ctx context.Context, f BookingFilter) ([]bookingModel.Booking, int64, error) {
	page, size := NormalizePage(f)

	s.mu.Lock()
	var matched []bookingModel.Booking
	for _, b := range s.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.RoomID != 0 && b.RoomID != f.RoomID {
			continue
		}
		if f.From != nil && !b.CheckOut.After(*f.From) {
			continue
		}
		if f.To != nil && !b.CheckIn.Before(*f.To) {
			continue
		}
		if f.Flagged && !b.NeedsReconciliation {
			continue
		}
		matched = append(matched, *b)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (page - 1) * size
	if start >= len(matched) {
		return []bookingModel.Booking{}, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) ListStatusEvents(ctx context.Context, bookingID uint) ([]bookingModel.BookingStatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bookingModel.BookingStatusEvent
	for _, ev := range s.events {
		if ev.BookingID == bookingID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetPaymentReference(ctx context.Context, bookingID uint, provider, reference, authorizationURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	if b.PaymentReference != nil {
		return ErrReferenceAlreadySet
	}
	for _, other := range s.bookings {
		if other.PaymentReference != nil && *other.PaymentReference == reference {
			return fmt.Errorf("set payment reference: %w", ErrDuplicate)
		}
	}
	ref, url := reference, authorizationURL
	b.PaymentReference = &ref
	b.PaymentProvider = provider
	b.AuthorizationURL = &url
	b.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) DeleteBooking(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(s.bookings, id)
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.BookingID != id {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	return nil
}

func (s *MemoryStore) roomWithImages(r *roomModel.Room) roomModel.Room {
	cp := *r
	cp.Images = nil
	for _, img := range s.images {
		if img.RoomID == r.ID {
			cp.Images = append(cp.Images, *img)
		}
	}
	sort.Slice(cp.Images, func(i, j int) bool {
		if cp.Images[i].Position != cp.Images[j].Position {
			return cp.Images[i].Position < cp.Images[j].Position
		}
		return cp.Images[i].ID < cp.Images[j].ID
	})
	return cp
}

func (s *MemoryStore) ListRooms(ctx context.Context, activeOnly bool) ([]roomModel.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]roomModel.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if activeOnly && !r.IsActive {
			continue
		}
		out = append(out, s.roomWithImages(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindRoomWithImages(ctx context.Context, id uint) (*roomModel.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s.roomWithImages(r)
	return &cp, nil
}

func (s *MemoryStore) CreateRoom(ctx context.Context, r *roomModel.Room) error {
	s.mu.Lock()
	for _, existing := range s.rooms {
		if existing.Name == r.Name {
			s.mu.Unlock()
			return fmt.Errorf("create room: %w", ErrDuplicate)
		}
	}
	s.mu.Unlock()
	stored := s.PutRoom(*r)
	*r = *stored
	return nil
}

func (s *MemoryStore) UpdateRoom(ctx context.Context, r *roomModel.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rooms[r.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.rooms {
		if id != r.ID && other.Name == r.Name {
			return fmt.Errorf("update room: %w", ErrDuplicate)
		}
	}
	existing.Name = r.Name
	existing.Description = r.Description
	existing.PricePerNight = r.PricePerNight
	existing.Capacity = r.Capacity
	existing.IsActive = r.IsActive
	existing.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, id uint) error {
	l := s.lockFor(s.roomLocks, id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return ErrNotFound
	}
	for _, b := range s.bookings {
		if b.RoomID == id {
			return ErrRoomInUse
		}
	}
	for imgID, img := range s.images {
		if img.RoomID == id {
			delete(s.images, imgID)
		}
	}
	delete(s.rooms, id)
	return nil
}

func (s *MemoryStore) AddRoomImage(ctx context.Context, img *roomModel.RoomImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[img.RoomID]; !ok {
		return fmt.Errorf("add room image: room %d does not exist", img.RoomID)
	}
	next := 0
	for _, other := range s.images {
		if other.RoomID == img.RoomID && other.Position >= next {
			next = other.Position + 1
		}
	}
	s.nextImageID++
	img.ID = s.nextImageID
	img.Position = next
	img.CreatedAt = s.now()
	cp := *img
	s.images[img.ID] = &cp
	return nil
}

func (s *MemoryStore) FindRoomImage(ctx context.Context, roomID, imageID uint) (*roomModel.RoomImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[imageID]
	if !ok || img.RoomID != roomID {
		return nil, ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (s *MemoryStore) DeleteRoomImage(ctx context.Context, imageID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[imageID]; !ok {
		return ErrNotFound
	}
	delete(s.images, imageID)
	return nil
}

func (s *MemoryStore) FindAdminByUsername(ctx context.Context, username string) (*adminModel.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) UpsertAdmin(ctx context.Context, a *adminModel.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.admins[a.Username]; ok {
		existing.PasswordHash = a.PasswordHash
		existing.LegalName = a.LegalName
		existing.Permissions = append(adminModel.StringSlice(nil), a.Permissions...)
		existing.UpdatedAt = s.now()
		*a = *existing
		return nil
	}
	s.nextAdminID++
	a.ID = s.nextAdminID
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	cp.Permissions = append(adminModel.StringSlice(nil), a.Permissions...)
	s.admins[a.Username] = &cp
	return nil
}

func (s *MemoryStore) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.ID == id {
			t := at
			a.LastLoginAt = &t
			return nil
		}
	}
	return ErrNotFound
}
