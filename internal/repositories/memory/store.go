// Package memory holds process-local stores used by STORE_DRIVER=memory and
// by service and handler tests. Semantics follow the MySQL repositories,
// including conditional transitions and referential guards.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"flightbook/internal/domain/models"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"
)

type Store struct {
	mu           sync.RWMutex
	flights      map[int64]models.Flight
	reservations map[int64]models.Reservation
	users        map[int64]models.User
	intents      map[string]models.PaymentIntentRecord

	nextFlight      int64
	nextReservation int64
	nextUser        int64
}

func New() *Store {
	return &Store{
		flights:      map[int64]models.Flight{},
		reservations: map[int64]models.Reservation{},
		users:        map[int64]models.User{},
		intents:      map[string]models.PaymentIntentRecord{},
	}
}

func (s *Store) Flights() repositories.FlightStore           { return flightStore{s} }
func (s *Store) Reservations() repositories.ReservationStore { return reservationStore{s} }
func (s *Store) Users() repositories.UserStore               { return userStore{s} }
func (s *Store) Payments() repositories.PaymentLedger        { return paymentLedger{s} }
func (s *Store) Reports() repositories.ReportStore           { return reportStore{s} }

// PutUser inserts or replaces a user. A zero ID gets the next sequence value.
func (s *Store) PutUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextUser++
		u.ID = s.nextUser
	} else if u.ID > s.nextUser {
		s.nextUser = u.ID
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.NowUTC()
		u.UpdatedAt = u.CreatedAt
	}
	s.users[u.ID] = u
	return u
}

// PutFlight stores f as-is, keeping its code. Meant for fixtures.
func (s *Store) PutFlight(f models.Flight) models.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == 0 {
		s.nextFlight++
		f.ID = s.nextFlight
	} else if f.ID > s.nextFlight {
		s.nextFlight = f.ID
	}
	if f.FlightCode == "" {
		f.FlightCode = models.FlightCode(f.ID)
	}
	if f.Status == "" {
		f.Status = models.FlightScheduled
	}
	s.flights[f.ID] = f
	return f
}

type flightStore struct{ s *Store }

func (fs flightStore) Create(_ context.Context, f *models.Flight) error {
	s := fs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFlight++
	f.ID = s.nextFlight
	f.FlightCode = models.FlightCode(f.ID)
	for _, other := range s.flights {
		if other.FlightCode == f.FlightCode {
			return repositories.ErrDuplicate
		}
	}
	s.flights[f.ID] = *f
	return nil
}

func (fs flightStore) GetByID(_ context.Context, id int64) (models.Flight, error) {
	fs.s.mu.RLock()
	defer fs.s.mu.RUnlock()
	f, ok := fs.s.flights[id]
	if !ok {
		return models.Flight{}, repositories.ErrNotFound
	}
	return f, nil
}

func matchesFlight(f models.Flight, q models.FlightQuery) bool {
	if text := strings.TrimSpace(q.Text); text != "" {
		if !utils.ContainsFold(f.FlightCode, text) && !utils.ContainsFold(f.Origin, text) && !utils.ContainsFold(f.Destination, text) {
			return false
		}
	}
	if o := strings.TrimSpace(q.Origin); o != "" && !utils.ContainsFold(f.Origin, o) {
		return false
	}
	if d := strings.TrimSpace(q.Destination); d != "" && !utils.ContainsFold(f.Destination, d) {
		return false
	}
	if q.Date != nil {
		start, end := utils.DayBounds(*q.Date)
		if f.DepartureAt.Before(start) || !f.DepartureAt.Before(end) {
			return false
		}
	}
	if q.OnlyScheduled && f.Status != models.FlightScheduled {
		return false
	}
	return true
}

func (fs flightStore) List(_ context.Context, q models.FlightQuery) ([]models.Flight, int, error) {
	fs.s.mu.RLock()
	matched := []models.Flight{}
	for _, f := range fs.s.flights {
		if matchesFlight(f, q) {
			matched = append(matched, f)
		}
	}
	fs.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if q.SortByDeparture {
			if !matched[i].DepartureAt.Equal(matched[j].DepartureAt) {
				return matched[i].DepartureAt.Before(matched[j].DepartureAt)
			}
			return matched[i].ID < matched[j].ID
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := q.Page.Offset()
	if start > total {
		start = total
	}
	end := total
	if q.Page.PageSize > 0 && start+q.Page.PageSize < total {
		end = start + q.Page.PageSize
	}
	return matched[start:end], total, nil
}

func (fs flightStore) Update(_ context.Context, id int64, upd models.FlightUpdate, at time.Time) error {
	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()
	f, ok := fs.s.flights[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if upd.Empty() {
		return nil
	}
	upd.Apply(&f)
	f.UpdatedAt = at
	fs.s.flights[id] = f
	return nil
}

func (fs flightStore) SetStatus(_ context.Context, id int64, from, to models.FlightStatus, at time.Time) (bool, error) {
	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()
	f, ok := fs.s.flights[id]
	if !ok || f.Status != from {
		return false, nil
	}
	f.Status = to
	f.UpdatedAt = at
	fs.s.flights[id] = f
	return true, nil
}

func (fs flightStore) Delete(_ context.Context, id int64) error {
	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()
	if _, ok := fs.s.flights[id]; !ok {
		return repositories.ErrNotFound
	}
	for _, r := range fs.s.reservations {
		if r.FlightID == id {
			return repositories.ErrReferenced
		}
	}
	delete(fs.s.flights, id)
	return nil
}

type reservationStore struct{ s *Store }

func (rs reservationStore) Create(_ context.Context, r *models.Reservation) error {
	s := rs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flights[r.FlightID]; !ok {
		return repositories.ErrReferenced
	}
	if _, ok := s.users[r.UserID]; !ok {
		return repositories.ErrReferenced
	}
	if r.PaymentIntentID != nil {
		for _, other := range s.reservations {
			if other.PaymentIntentID != nil && *other.PaymentIntentID == *r.PaymentIntentID {
				return repositories.ErrDuplicate
			}
		}
	}
	s.nextReservation++
	r.ID = s.nextReservation
	s.reservations[r.ID] = *r
	return nil
}

func (rs reservationStore) GetForUser(_ context.Context, id, userID int64) (models.Reservation, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()
	r, ok := rs.s.reservations[id]
	if !ok || r.UserID != userID {
		return models.Reservation{}, repositories.ErrNotFound
	}
	return r, nil
}

func (rs reservationStore) GetByPaymentIntent(_ context.Context, intentID string) (models.Reservation, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()
	for _, r := range rs.s.reservations {
		if r.PaymentIntentID != nil && *r.PaymentIntentID == intentID {
			return r, nil
		}
	}
	return models.Reservation{}, repositories.ErrNotFound
}

func (rs reservationStore) ListByUser(_ context.Context, userID int64) ([]models.Reservation, error) {
	rs.s.mu.RLock()
	out := []models.Reservation{}
	for _, r := range rs.s.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	rs.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (rs reservationStore) Transition(_ context.Context, id, userID int64, t models.ReservationTransition) (bool, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	r, ok := rs.s.reservations[id]
	if !ok || r.UserID != userID || !t.Matches(r) {
		return false, nil
	}
	t.Apply(&r)
	rs.s.reservations[id] = r
	return true, nil
}

func (rs reservationStore) CountByFlight(_ context.Context, flightID int64) (int, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()
	n := 0
	for _, r := range rs.s.reservations {
		if r.FlightID == flightID {
			n++
		}
	}
	return n, nil
}

type userStore struct{ s *Store }

func (us userStore) GetByID(_ context.Context, id int64) (models.User, error) {
	us.s.mu.RLock()
	defer us.s.mu.RUnlock()
	u, ok := us.s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

func (us userStore) GetByLogin(_ context.Context, login string) (models.User, error) {
	login = strings.TrimSpace(login)
	us.s.mu.RLock()
	defer us.s.mu.RUnlock()
	for _, u := range us.s.users {
		if u.Email == login || u.Username == login {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (us userStore) List(_ context.Context) ([]models.User, error) {
	us.s.mu.RLock()
	out := make([]models.User, 0, len(us.s.users))
	for _, u := range us.s.users {
		out = append(out, u)
	}
	us.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (us userStore) UpdateRole(_ context.Context, id int64, role string, at time.Time) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	u, ok := us.s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = at
	us.s.users[id] = u
	return nil
}

func (us userStore) Delete(_ context.Context, id int64) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	if _, ok := us.s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	for _, r := range us.s.reservations {
		if r.UserID == id {
			return repositories.ErrReferenced
		}
	}
	delete(us.s.users, id)
	return nil
}

type paymentLedger struct{ s *Store }

func (pl paymentLedger) Create(_ context.Context, rec models.PaymentIntentRecord) error {
	pl.s.mu.Lock()
	defer pl.s.mu.Unlock()
	if _, ok := pl.s.intents[rec.IntentID]; ok {
		return repositories.ErrDuplicate
	}
	for _, other := range pl.s.intents {
		if other.UserID == rec.UserID && other.IdempotencyKey == rec.IdempotencyKey {
			return repositories.ErrDuplicate
		}
	}
	pl.s.intents[rec.IntentID] = rec
	return nil
}

func (pl paymentLedger) GetByKey(_ context.Context, userID int64, key string) (models.PaymentIntentRecord, error) {
	pl.s.mu.RLock()
	defer pl.s.mu.RUnlock()
	for _, rec := range pl.s.intents {
		if rec.UserID == userID && rec.IdempotencyKey == key {
			return rec, nil
		}
	}
	return models.PaymentIntentRecord{}, repositories.ErrNotFound
}

func (pl paymentLedger) GetByIntentID(_ context.Context, intentID string) (models.PaymentIntentRecord, error) {
	pl.s.mu.RLock()
	defer pl.s.mu.RUnlock()
	rec, ok := pl.s.intents[intentID]
	if !ok {
		return models.PaymentIntentRecord{}, repositories.ErrNotFound
	}
	return rec, nil
}

func (pl paymentLedger) ListOpen(_ context.Context, createdBefore time.Time, limit int) ([]models.PaymentIntentRecord, error) {
	pl.s.mu.RLock()
	out := []models.PaymentIntentRecord{}
	for _, rec := range pl.s.intents {
		if rec.State == models.LedgerOpen && rec.CreatedAt.Before(createdBefore) {
			out = append(out, rec)
		}
	}
	pl.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (pl paymentLedger) CountOpenByUser(_ context.Context, userID int64) (int, error) {
	pl.s.mu.RLock()
	defer pl.s.mu.RUnlock()
	n := 0
	for _, rec := range pl.s.intents {
		if rec.UserID == userID && rec.State == models.LedgerOpen {
			n++
		}
	}
	return n, nil
}

func (pl paymentLedger) MarkState(_ context.Context, intentID string, from, to models.LedgerState, reservationID *int64, at time.Time) (bool, error) {
	pl.s.mu.Lock()
	defer pl.s.mu.Unlock()
	rec, ok := pl.s.intents[intentID]
	if !ok || rec.State != from {
		return false, nil
	}
	rec.State = to
	if reservationID != nil {
		id := *reservationID
		rec.ReservationID = &id
	}
	rec.UpdatedAt = at
	pl.s.intents[intentID] = rec
	return true, nil
}

type reportStore struct{ s *Store }

func (rs reportStore) FlightSales(_ context.Context, f models.SalesFilter) ([]models.FlightSales, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()

	byFlight := map[int64]*models.FlightSales{}
	out := []*models.FlightSales{}
	for _, fl := range rs.s.flights {
		if !f.Contains(fl.DepartureAt) {
			continue
		}
		rec := &models.FlightSales{
			FlightID:    fl.ID,
			FlightCode:  fl.FlightCode,
			Origin:      fl.Origin,
			Destination: fl.Destination,
			DepartureAt: fl.DepartureAt,
			Status:      fl.Status,
		}
		byFlight[fl.ID] = rec
		out = append(out, rec)
	}
	for _, r := range rs.s.reservations {
		rec, ok := byFlight[r.FlightID]
		if !ok {
			continue
		}
		if r.Status == models.StatusCancelled {
			rec.Cancelled++
			continue
		}
		rec.Passengers += r.PassengerCount
		if r.Kind == models.KindPurchase {
			rec.Purchases++
			rec.Revenue = rec.Revenue.Add(r.TotalPrice)
		} else {
			rec.Reservations++
			rec.Pending = rec.Pending.Add(r.TotalPrice)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].DepartureAt.Before(out[j].DepartureAt)
		}
		return out[i].FlightID < out[j].FlightID
	})
	list := make([]models.FlightSales, 0, len(out))
	for _, rec := range out {
		list = append(list, *rec)
	}
	return list, nil
}
