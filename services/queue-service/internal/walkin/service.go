// Package walkin runs the queue use cases on top of the queue state machine:
// joining, calling the next customer, status moves and the display board.
package walkin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/changefeed"
	"github.com/md-rashed-zaman/salonqueue/libs/phone"
	"github.com/md-rashed-zaman/salonqueue/libs/redisx"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
	"github.com/md-rashed-zaman/salonqueue/libs/validate"
	"github.com/md-rashed-zaman/salonqueue/services/queue-service/internal/queue"
)

type Catalog interface {
	Business(ctx context.Context, id string) (tenant.Business, error)
	Service(ctx context.Context, businessID, id string) (tenant.Service, error)
	ServiceDurations(ctx context.Context, businessID string) (map[string]int, error)
}

type Store interface {
	Day(ctx context.Context, businessID, date string) ([]queue.Entry, error)
	Get(ctx context.Context, businessID, id string) (queue.Entry, error)
	Insert(ctx context.Context, businessID, date string, build func(day []queue.Entry) (queue.Entry, error)) (queue.Entry, error)
	Transition(ctx context.Context, businessID, date string, decide func(day []queue.Entry) ([]queue.Change, error), now time.Time) ([]queue.Entry, error)
}

type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

const joinLockTTL = 3 * time.Second

type Service struct {
	catalog Catalog
	store   Store
	feed    changefeed.Feed
	locker  Locker
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(catalog Catalog, store Store, feed changefeed.Feed, locker Locker, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, store: store, feed: feed, locker: locker, logger: logger, now: time.Now}
}

type JoinRequest struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string `json:"customer_phone" validate:"required,max=40"`
	ServiceID     string `json:"service_id" validate:"required,uuid"`
}

// Join hands out today's next ticket with an estimate of the wait ahead.
func (s *Service) Join(ctx context.Context, req JoinRequest) (queue.Entry, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if err := validate.Struct(req); err != nil {
		return queue.Entry{}, err
	}
	biz, err := s.catalog.Business(ctx, req.BusinessID)
	if err != nil {
		return queue.Entry{}, err
	}
	svc, err := s.catalog.Service(ctx, biz.ID, req.ServiceID)
	if err != nil {
		return queue.Entry{}, err
	}
	if !svc.IsActive {
		return queue.Entry{}, validate.Fail("service_id", "service is no longer offered")
	}
	customerPhone, err := phone.Normalize(req.CustomerPhone, biz.Settings.PhoneRegion)
	if err != nil {
		return queue.Entry{}, validate.Fail("customer_phone", "customer_phone is not a valid phone number")
	}
	durations, err := s.catalog.ServiceDurations(ctx, biz.ID)
	if err != nil {
		return queue.Entry{}, err
	}

	release := s.lockJoin(ctx, biz.ID)
	defer release()

	date := s.today(biz)
	entry, err := s.store.Insert(ctx, biz.ID, date, func(day []queue.Entry) (queue.Entry, error) {
		return queue.Entry{
			BusinessID:           biz.ID,
			CustomerName:         req.CustomerName,
			CustomerPhone:        customerPhone,
			ServiceID:            svc.ID,
			QueueNumber:          queue.NextNumber(queue.MaxNumber(day)),
			QueueDate:            date,
			Status:               queue.StatusWaiting,
			EstimatedWaitMinutes: queue.EstimateWait(day, durations),
		}, nil
	})
	if err != nil {
		return queue.Entry{}, err
	}
	s.publish(ctx, entry, changefeed.OpInsert)
	return entry, nil
}

// lockJoin serialises number assignment per business when Redis is present.
// The unique index still decides if the lock cannot be had.
func (s *Service) lockJoin(ctx context.Context, businessID string) func() {
	if s.locker == nil {
		return func() {}
	}
	release, err := s.locker.Obtain(ctx, "queue:join:"+businessID, joinLockTTL)
	if err != nil {
		if !errors.Is(err, redisx.ErrLockBusy) {
			s.logger.Warn("queue join lock unavailable", "business_id", businessID, "err", err)
		}
		return func() {}
	}
	return release
}

// Transition moves one ticket. Starting service demotes the customer
// currently in the chair to called in the same transaction.
func (s *Service) Transition(ctx context.Context, businessID, id, status string) ([]queue.Entry, error) {
	to, err := queue.ParseStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, validate.Fail("status", "status must be one of: waiting called in_progress completed cancelled")
	}
	current, err := s.store.Get(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	changed, err := s.store.Transition(ctx, businessID, current.QueueDate, func(day []queue.Entry) ([]queue.Change, error) {
		return queue.PlanTransition(day, id, to)
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	for _, e := range changed {
		s.publish(ctx, e, changefeed.OpUpdate)
	}
	return changed, nil
}

// CallNext calls the lowest numbered waiting ticket of today.
func (s *Service) CallNext(ctx context.Context, businessID string) (queue.Entry, error) {
	biz, err := s.catalog.Business(ctx, businessID)
	if err != nil {
		return queue.Entry{}, err
	}
	changed, err := s.store.Transition(ctx, biz.ID, s.today(biz), func(day []queue.Entry) ([]queue.Change, error) {
		next, ok := queue.CallNext(day)
		if !ok {
			return nil, apperr.Conflict("no customers waiting")
		}
		return queue.PlanTransition(day, next.ID, queue.StatusCalled)
	}, s.now().UTC())
	if err != nil {
		return queue.Entry{}, err
	}
	for _, e := range changed {
		s.publish(ctx, e, changefeed.OpUpdate)
	}
	return changed[len(changed)-1], nil
}

// Board is the display view of one day; an empty date means today.
func (s *Service) Board(ctx context.Context, businessID, date string) (queue.Board, error) {
	biz, err := s.catalog.Business(ctx, businessID)
	if err != nil {
		return queue.Board{}, err
	}
	if date == "" {
		date = s.today(biz)
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		return queue.Board{}, validate.Fail("date", "date must be a date as YYYY-MM-DD")
	}
	day, err := s.store.Day(ctx, biz.ID, date)
	if err != nil {
		return queue.Board{}, err
	}
	return queue.BuildBoard(date, day), nil
}

// Watch calls fn for every queue change of the business until ctx ends.
func (s *Service) Watch(ctx context.Context, businessID string, fn func(changefeed.Change)) (func(), error) {
	if _, err := s.catalog.Business(ctx, businessID); err != nil {
		return nil, err
	}
	return s.feed.Subscribe(ctx, businessID, changefeed.TableQueueEntries, fn)
}

func (s *Service) today(biz tenant.Business) string {
	return s.now().In(biz.Settings.Location()).Format(time.DateOnly)
}

func (s *Service) publish(ctx context.Context, e queue.Entry, op changefeed.Op) {
	if s.feed == nil {
		return
	}
	err := s.feed.Publish(ctx, changefeed.Change{
		Table:      changefeed.TableQueueEntries,
		BusinessID: e.BusinessID,
		EntityID:   e.ID,
		Op:         op,
		Status:     string(e.Status),
	})
	if err != nil {
		s.logger.Warn("change publish failed", "queue_entry_id", e.ID, "err", err)
	}
}
