package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/livraison/courier-tracking/internal/core/domain"
	"github.com/livraison/courier-tracking/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubPositionStore struct {
	mu        sync.Mutex
	reports   []domain.PositionReport
	appendErr error
	lastLimit int
}

func (s *stubPositionStore) Append(_ context.Context, courierID string, lat, lng float64) (*domain.PositionReport, error) {
	if err := domain.ValidatePosition(courierID, lat, lng); err != nil {
		return nil, err
	}
	if s.appendErr != nil {
		return nil, domain.NewStoreError("append", s.appendErr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := domain.PositionReport{
		ReportID:  fmt.Sprintf("pos-%d", len(s.reports)+1),
		CourierID: courierID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: domain.ReportTime(time.Now()),
	}
	s.reports = append(s.reports, r)
	return &r, nil
}

func (s *stubPositionStore) LatestPerCourier(_ context.Context) ([]domain.PositionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[string]domain.PositionReport)
	for _, r := range s.reports {
		latest[r.CourierID] = r
	}
	out := make([]domain.PositionReport, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubPositionStore) History(_ context.Context, courierID string, limit int) ([]domain.PositionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	out := []domain.PositionReport{}
	for i := len(s.reports) - 1; i >= 0 && len(out) < limit; i-- {
		if s.reports[i].CourierID == courierID {
			out = append(out, s.reports[i])
		}
	}
	return out, nil
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.PositionEvent
}

func (p *stubPublisher) Publish(ev domain.PositionEvent) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

type stubIdempotency struct {
	seen     map[string]*domain.PositionReport
	pending  map[string]bool
	claimErr error
	rememErr error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{seen: make(map[string]*domain.PositionReport), pending: make(map[string]bool)}
}

func (s *stubIdempotency) Claim(_ context.Context, key string) (*domain.PositionReport, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if r, ok := s.seen[key]; ok {
		return r, nil
	}
	if s.pending[key] {
		return nil, domain.ErrSubmissionInProgress
	}
	s.pending[key] = true
	return nil, nil
}

func (s *stubIdempotency) Remember(_ context.Context, key string, r *domain.PositionReport) error {
	if s.rememErr != nil {
		return s.rememErr
	}
	delete(s.pending, key)
	clone := *r
	s.seen[key] = &clone
	return nil
}

func (s *stubIdempotency) Release(_ context.Context, key string) error {
	delete(s.pending, key)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func paris(courierID string) ports.SubmitPositionInput {
	return ports.SubmitPositionInput{CourierID: courierID, Latitude: 48.85, Longitude: 2.35}
}

// ---------------------------------------------------------------------------
// Submit tests
// ---------------------------------------------------------------------------

func TestPositionService_Submit_PersistsThenPublishes(t *testing.T) {
	store, pub := &stubPositionStore{}, &stubPublisher{}
	svc := NewPositionService(store, pub, nil, discardLogger)

	res, err := svc.Submit(context.Background(), paris("LIV001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Replayed {
		t.Error("first submission must not be a replay")
	}
	if res.Report.ReportID == "" || res.Report.Timestamp.IsZero() {
		t.Errorf("report must carry id and timestamp: %+v", res.Report)
	}
	if len(store.reports) != 1 {
		t.Fatalf("expected 1 stored report, got %d", len(store.reports))
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.CourierID != "LIV001" || ev.Latitude != 48.85 || ev.Longitude != 2.35 {
		t.Errorf("event does not match report: %+v", ev)
	}
	if !ev.Timestamp.Equal(res.Report.Timestamp) || ev.ReportID != res.Report.ReportID {
		t.Errorf("event must mirror the stored report, got %+v want %+v", ev, res.Report)
	}
}

func TestPositionService_Submit_ValidationErrorPublishesNothing(t *testing.T) {
	store, pub := &stubPositionStore{}, &stubPublisher{}
	svc := NewPositionService(store, pub, nil, discardLogger)

	in := paris("LIV001")
	in.Latitude = 91

	_, err := svc.Submit(context.Background(), in)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.reports) != 0 || len(pub.events) != 0 {
		t.Errorf("invalid input must not persist or publish: reports=%d events=%d", len(store.reports), len(pub.events))
	}
}

func TestPositionService_Submit_StoreErrorPublishesNothing(t *testing.T) {
	store, pub := &stubPositionStore{appendErr: errors.New("db unavailable")}, &stubPublisher{}
	svc := NewPositionService(store, pub, nil, discardLogger)

	_, err := svc.Submit(context.Background(), paris("LIV001"))
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("store failure must not publish, got %d events", len(pub.events))
	}
}

func TestPositionService_Submit_UnknownCourierAccepted(t *testing.T) {
	store, pub := &stubPositionStore{}, &stubPublisher{}
	svc := NewPositionService(store, pub, nil, discardLogger)

	if _, err := svc.Submit(context.Background(), paris("NEVER-REGISTERED")); err != nil {
		t.Fatalf("positions for unregistered couriers are accepted, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Idempotency tests
// ---------------------------------------------------------------------------

func TestPositionService_Submit_IdempotencyReplay(t *testing.T) {
	store, pub, idem := &stubPositionStore{}, &stubPublisher{}, newStubIdempotency()
	svc := NewPositionService(store, pub, idem, discardLogger)

	in := paris("LIV001")
	in.IdempotencyKey = "retry-abc"

	first, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	second, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if !second.Replayed {
		t.Error("replay must set Replayed=true")
	}
	if second.Report.ReportID != first.Report.ReportID {
		t.Errorf("replay must return the first report: got %q want %q", second.Report.ReportID, first.Report.ReportID)
	}
	if len(store.reports) != 1 {
		t.Errorf("expected 1 stored report, got %d", len(store.reports))
	}
	if len(pub.events) != 1 {
		t.Errorf("replay must not publish, got %d events", len(pub.events))
	}
}

func TestPositionService_Submit_IdempotencyStoreDown(t *testing.T) {
	store, pub := &stubPositionStore{}, &stubPublisher{}
	idem := newStubIdempotency()
	idem.claimErr = errors.New("redis down")
	idem.rememErr = errors.New("redis down")
	svc := NewPositionService(store, pub, idem, discardLogger)

	in := paris("LIV001")
	in.IdempotencyKey = "retry-abc"

	if _, err := svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("idempotency failures must not fail the submission: %v", err)
	}
	if len(store.reports) != 1 || len(pub.events) != 1 {
		t.Errorf("expected the report to be stored and published")
	}
}

func TestPositionService_Submit_KeyHeldByInFlightSubmission(t *testing.T) {
	store, pub, idem := &stubPositionStore{}, &stubPublisher{}, newStubIdempotency()
	idem.pending["retry-abc"] = true
	svc := NewPositionService(store, pub, idem, discardLogger)

	in := paris("LIV001")
	in.IdempotencyKey = "retry-abc"

	_, err := svc.Submit(context.Background(), in)
	if !errors.Is(err, domain.ErrSubmissionInProgress) {
		t.Fatalf("expected ErrSubmissionInProgress, got %v", err)
	}
	if len(store.reports) != 0 || len(pub.events) != 0 {
		t.Errorf("a held key must neither append nor publish")
	}
}

func TestPositionService_Submit_FailedAppendReleasesKey(t *testing.T) {
	store, pub, idem := &stubPositionStore{appendErr: errors.New("socket closed")}, &stubPublisher{}, newStubIdempotency()
	svc := NewPositionService(store, pub, idem, discardLogger)

	in := paris("LIV001")
	in.IdempotencyKey = "retry-abc"

	if _, err := svc.Submit(context.Background(), in); !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected a store error, got %v", err)
	}
	if idem.pending["retry-abc"] {
		t.Fatal("a failed submission must release its key")
	}

	store.appendErr = nil
	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("retry after release failed: %v", err)
	}
	if res.Replayed || len(store.reports) != 1 {
		t.Errorf("retry must append once: replayed=%v reports=%d", res.Replayed, len(store.reports))
	}
}

func TestPositionService_Submit_NoKeyAlwaysAppends(t *testing.T) {
	store, pub, idem := &stubPositionStore{}, &stubPublisher{}, newStubIdempotency()
	svc := NewPositionService(store, pub, idem, discardLogger)

	_, _ = svc.Submit(context.Background(), paris("LIV001"))
	_, _ = svc.Submit(context.Background(), paris("LIV001"))

	if len(store.reports) != 2 {
		t.Errorf("without a key each call appends; got %d reports", len(store.reports))
	}
}

// ---------------------------------------------------------------------------
// Query tests
// ---------------------------------------------------------------------------

func TestPositionService_History_Limit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, ports.DefaultHistoryLimit},
		{-5, ports.DefaultHistoryLimit},
		{10, 10},
		{1000, ports.DefaultHistoryLimit},
	}

	for _, tc := range cases {
		store := &stubPositionStore{}
		svc := NewPositionService(store, &stubPublisher{}, nil, discardLogger)
		if _, err := svc.History(context.Background(), "LIV001", tc.in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.lastLimit != tc.want {
			t.Errorf("limit %d: expected store limit %d, got %d", tc.in, tc.want, store.lastLimit)
		}
	}
}

func TestPositionService_Latest(t *testing.T) {
	store := &stubPositionStore{}
	svc := NewPositionService(store, &stubPublisher{}, nil, discardLogger)

	for i := 0; i < 3; i++ {
		_, _ = svc.Submit(context.Background(), paris("LIV002"))
	}
	_, _ = svc.Submit(context.Background(), paris("LIV003"))

	latest, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(latest) != 2 {
		t.Errorf("expected one entry per courier, got %d", len(latest))
	}
}
