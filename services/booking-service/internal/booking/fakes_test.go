package booking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/changefeed"
	"github.com/md-rashed-zaman/salonqueue/libs/outbox"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	bizID   = "6f1c1b1e-0000-4000-8000-000000000001"
	staffID = "6f1c1b1e-0000-4000-8000-000000000002"
	svcID   = "6f1c1b1e-0000-4000-8000-000000000003"
	idleID  = "6f1c1b1e-0000-4000-8000-000000000004"
)

type fakeCatalog struct {
	business tenant.Business
	services map[string]tenant.Service
	staff    map[string]tenant.Staff
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		business: tenant.Business{ID: bizID, Name: "Shear Joy", Slug: "shear-joy", Phone: "+16502530000", Settings: tenant.DefaultSettings()},
		services: map[string]tenant.Service{
			svcID: {ID: svcID, BusinessID: bizID, Name: "Haircut", DurationMinutes: 30, Price: decimal.NewFromInt(25), IsActive: true},
		},
		staff: map[string]tenant.Staff{
			staffID: {ID: staffID, BusinessID: bizID, Name: "Ana", IsActive: true},
			idleID:  {ID: idleID, BusinessID: bizID, Name: "Ben", IsActive: false},
		},
	}
}

func (f *fakeCatalog) Business(_ context.Context, id string) (tenant.Business, error) {
	if id != f.business.ID {
		return tenant.Business{}, apperr.NotFound("business not found")
	}
	return f.business, nil
}

func (f *fakeCatalog) Service(_ context.Context, businessID, id string) (tenant.Service, error) {
	s, ok := f.services[id]
	if !ok || s.BusinessID != businessID {
		return tenant.Service{}, apperr.NotFound("service not found")
	}
	return s, nil
}

func (f *fakeCatalog) Staff(_ context.Context, businessID, id string) (tenant.Staff, error) {
	s, ok := f.staff[id]
	if !ok || s.BusinessID != businessID {
		return tenant.Staff{}, apperr.NotFound("staff member not found")
	}
	return s, nil
}

type memStore struct {
	mu      sync.Mutex
	seq     int
	appts   map[string]model.Appointment
	idem    map[string]string
	events  []outbox.Event
	created time.Time
	lookups int
}

func newMemStore() *memStore {
	return &memStore{appts: map[string]model.Appointment{}, idem: map[string]string{}}
}

func (m *memStore) BookedStarts(_ context.Context, staffID string, from, to time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, a := range m.appts {
		if a.StaffID == staffID && a.Status.Active() && !a.AppointmentTime.Before(from) && a.AppointmentTime.Before(to) {
			out = append(out, a.AppointmentTime)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, appt model.Appointment, key string, events storage.EventBuilder) (model.Appointment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.idem[key]; ok && key != "" {
		return m.appts[id], true, nil
	}
	for _, a := range m.appts {
		if a.StaffID == appt.StaffID && a.Status.Active() && a.AppointmentTime.Equal(appt.AppointmentTime) {
			return model.Appointment{}, false, apperr.Conflict("slot no longer available")
		}
	}
	m.seq++
	appt.ID = fmt.Sprintf("6f1c1b1e-0000-4000-9000-%012d", m.seq)
	appt.CreatedAt = time.Now()
	m.appts[appt.ID] = appt
	if key != "" {
		m.idem[key] = appt.ID
	}
	if events != nil {
		evts, err := events(appt)
		if err != nil {
			return model.Appointment{}, false, err
		}
		m.events = append(m.events, evts...)
	}
	return appt, false, nil
}

func (m *memStore) FindByIdempotencyKey(_ context.Context, businessID, key string) (model.Appointment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	id, ok := m.idem[key]
	if !ok || m.appts[id].BusinessID != businessID {
		return model.Appointment{}, false, nil
	}
	return m.appts[id], true, nil
}

func (m *memStore) Get(_ context.Context, businessID, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.BusinessID != businessID {
		return model.Appointment{}, apperr.NotFound("appointment not found")
	}
	return a, nil
}

func (m *memStore) Transition(_ context.Context, businessID, id string, to model.Status, guard func(model.Appointment) error) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.BusinessID != businessID {
		return model.Appointment{}, apperr.NotFound("appointment not found")
	}
	if guard != nil {
		if err := guard(a); err != nil {
			return model.Appointment{}, err
		}
	}
	if !model.CanTransition(a.Status, to) {
		return model.Appointment{}, apperr.Conflict("appointment cannot move from %s to %s", a.Status, to)
	}
	a.Status = to
	m.appts[id] = a
	return a, nil
}

func (m *memStore) ListBetween(_ context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range m.appts {
		if a.BusinessID == businessID && !a.AppointmentTime.Before(from) && a.AppointmentTime.Before(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentTime.Before(out[j].AppointmentTime) })
	return out, nil
}

func (m *memStore) UpcomingByContact(_ context.Context, businessID, phone, email string, now time.Time) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range m.appts {
		if a.BusinessID != businessID || a.AppointmentTime.Before(now) {
			continue
		}
		if a.Status != model.StatusPending && a.Status != model.StatusConfirmed {
			continue
		}
		if (phone != "" && a.CustomerPhone == phone) || (email != "" && a.CustomerEmail == email) {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestService(now time.Time) (*Service, *fakeCatalog, *memStore, *changefeed.MemoryFeed) {
	catalog := newFakeCatalog()
	store := newMemStore()
	feed := changefeed.NewMemoryFeed()
	svc := NewService(catalog, store, feed, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }
	return svc, catalog, store, feed
}
