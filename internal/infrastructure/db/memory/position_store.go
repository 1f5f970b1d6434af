// Package memory provides in-process implementations of the storage ports,
// used when STORAGE_BACKEND=memory and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

// courierLog is the ordered report log of a single courier.
type courierLog struct {
	mu      sync.Mutex
	reports []domain.PositionReport // ascending by Timestamp, ties in write order
}

// PositionStore keeps every report in memory. Appends for different couriers
// only contend on the courier map lookup.
type PositionStore struct {
	mu   sync.RWMutex
	logs map[string]*courierLog
	now  func() time.Time
}

func NewPositionStore() *PositionStore {
	return &PositionStore{
		logs: make(map[string]*courierLog),
		now:  time.Now,
	}
}

func (s *PositionStore) Append(ctx context.Context, courierID string, lat, lng float64) (*domain.PositionReport, error) {
	if err := domain.ValidatePosition(courierID, lat, lng); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("append", err)
	}

	report := domain.PositionReport{
		ReportID:  uuid.NewString(),
		CourierID: courierID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: domain.ReportTime(s.now()),
	}

	log := s.logFor(courierID)
	log.mu.Lock()
	// Insert after every report with an equal or earlier timestamp.
	i := sort.Search(len(log.reports), func(i int) bool {
		return log.reports[i].Timestamp.After(report.Timestamp)
	})
	log.reports = append(log.reports, domain.PositionReport{})
	copy(log.reports[i+1:], log.reports[i:])
	log.reports[i] = report
	log.mu.Unlock()

	return &report, nil
}

func (s *PositionStore) LatestPerCourier(ctx context.Context) ([]domain.PositionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("latest", err)
	}

	s.mu.RLock()
	logs := make([]*courierLog, 0, len(s.logs))
	for _, l := range s.logs {
		logs = append(logs, l)
	}
	s.mu.RUnlock()

	out := make([]domain.PositionReport, 0, len(logs))
	for _, l := range logs {
		l.mu.Lock()
		if n := len(l.reports); n > 0 {
			out = append(out, l.reports[n-1])
		}
		l.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourierID < out[j].CourierID })
	return out, nil
}

func (s *PositionStore) History(ctx context.Context, courierID string, limit int) ([]domain.PositionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("history", err)
	}

	s.mu.RLock()
	l, ok := s.logs[courierID]
	s.mu.RUnlock()
	if !ok || limit <= 0 {
		return []domain.PositionReport{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.reports)
	if limit > n {
		limit = n
	}
	out := make([]domain.PositionReport, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.reports[i])
	}
	return out, nil
}

func (s *PositionStore) logFor(courierID string) *courierLog {
	s.mu.RLock()
	l, ok := s.logs[courierID]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.logs[courierID]; !ok {
		l = &courierLog{}
		s.logs[courierID] = l
	}
	return l
}
