package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/livraison/courier-tracking/internal/core/domain"
	"github.com/livraison/courier-tracking/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubCourierService struct {
	createFn func(ctx context.Context, in ports.CreateCourierInput) (*domain.Courier, error)
	getFn    func(ctx context.Context, id string) (*domain.Courier, error)
	updateFn func(ctx context.Context, id string, u domain.CourierUpdate) (*domain.Courier, error)
}

func (s *stubCourierService) Create(ctx context.Context, in ports.CreateCourierInput) (*domain.Courier, error) {
	return s.createFn(ctx, in)
}

func (s *stubCourierService) List(context.Context) ([]domain.Courier, error) {
	return []domain.Courier{{ID: "LIV001", Name: "Jean Dupont", Active: true}}, nil
}

func (s *stubCourierService) Get(ctx context.Context, id string) (*domain.Courier, error) {
	return s.getFn(ctx, id)
}

func (s *stubCourierService) Update(ctx context.Context, id string, u domain.CourierUpdate) (*domain.Courier, error) {
	return s.updateFn(ctx, id, u)
}

type stubPositionService struct {
	submitFn  func(ctx context.Context, in ports.SubmitPositionInput) (*ports.SubmitResult, error)
	latest    []domain.PositionReport
	lastLimit int
}

func (s *stubPositionService) Submit(ctx context.Context, in ports.SubmitPositionInput) (*ports.SubmitResult, error) {
	return s.submitFn(ctx, in)
}

func (s *stubPositionService) Latest(context.Context) ([]domain.PositionReport, error) {
	return s.latest, nil
}

func (s *stubPositionService) History(_ context.Context, _ string, limit int) ([]domain.PositionReport, error) {
	s.lastLimit = limit
	return []domain.PositionReport{}, nil
}

type stubDispatcher struct {
	batches [][]ports.SubmitPositionInput
	err     error
}

func (d *stubDispatcher) EnqueueBatch(batch []ports.SubmitPositionInput) error {
	if d.err != nil {
		return d.err
	}
	d.batches = append(d.batches, batch)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

var sampleReport = domain.PositionReport{
	ReportID:  "6f1c1d52-8a0e-4c1b-9a55-0f7f2f1d9a10",
	CourierID: "LIV001",
	Latitude:  48.85,
	Longitude: 2.35,
	Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
}

// ---------------------------------------------------------------------------
// Courier handler
// ---------------------------------------------------------------------------

func TestCourierHandler_Create_Success(t *testing.T) {
	e := newEcho()
	stub := &stubCourierService{
		createFn: func(_ context.Context, in ports.CreateCourierInput) (*domain.Courier, error) {
			if in.ID != "LIV001" || in.Name != "Jean Dupont" || in.Phone != "0601020304" || in.Active != nil {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Courier{ID: in.ID, Name: in.Name, Phone: in.Phone, Active: true}, nil
		},
	}
	h := NewCourierHandler(stub)

	req := jsonRequest(http.MethodPost, "/api/livreurs/", `{"livreur_id":"LIV001","nom":"Jean Dupont","telephone":"0601020304"}`)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["livreur_id"] != "LIV001" || resp["nom"] != "Jean Dupont" || resp["actif"] != true {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestCourierHandler_Create_MissingFields(t *testing.T) {
	e := newEcho()
	h := NewCourierHandler(&stubCourierService{})

	req := jsonRequest(http.MethodPost, "/api/livreurs/", `{"telephone":"0601020304"}`)
	err := h.Create(e.NewContext(req, httptest.NewRecorder()))

	if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if !strings.Contains(err.Error(), "livreur_id is required") {
		t.Errorf("message should name the json field, got %v", err)
	}
}

func TestCourierHandler_Create_Duplicate(t *testing.T) {
	e := newEcho()
	h := NewCourierHandler(&stubCourierService{
		createFn: func(context.Context, ports.CreateCourierInput) (*domain.Courier, error) {
			return nil, domain.ErrCourierExists
		},
	})

	req := jsonRequest(http.MethodPost, "/api/livreurs/", `{"livreur_id":"LIV001","nom":"Jean"}`)
	err := h.Create(e.NewContext(req, httptest.NewRecorder()))

	if !errors.Is(err, domain.ErrCourierExists) {
		t.Fatalf("expected ErrCourierExists to reach the error handler, got %v", err)
	}
}

func TestCourierHandler_Get_NotFound(t *testing.T) {
	e := newEcho()
	h := NewCourierHandler(&stubCourierService{
		getFn: func(_ context.Context, id string) (*domain.Courier, error) {
			if id != "LIV404" {
				t.Fatalf("unexpected id %q", id)
			}
			return nil, domain.ErrCourierNotFound
		},
	})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/livreurs/LIV404/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("LIV404")

	if err := h.Get(c); !errors.Is(err, domain.ErrCourierNotFound) {
		t.Fatalf("expected ErrCourierNotFound, got %v", err)
	}
}

func TestCourierHandler_Update_PartialFields(t *testing.T) {
	e := newEcho()
	h := NewCourierHandler(&stubCourierService{
		updateFn: func(_ context.Context, id string, u domain.CourierUpdate) (*domain.Courier, error) {
			if u.Name != nil || u.Phone != nil || u.Active == nil || *u.Active {
				t.Fatalf("only actif=false expected, got %+v", u)
			}
			return &domain.Courier{ID: id, Name: "Jean", Active: false}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/api/livreurs/LIV001/", `{"actif":false}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("LIV001")

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Position handler
// ---------------------------------------------------------------------------

func TestPositionHandler_Submit_Created(t *testing.T) {
	e := newEcho()
	svc := &stubPositionService{
		submitFn: func(_ context.Context, in ports.SubmitPositionInput) (*ports.SubmitResult, error) {
			if in.CourierID != "LIV001" || in.Latitude != 48.85 || in.Longitude != 2.35 || in.IdempotencyKey != "" {
				t.Fatalf("unexpected input: %+v", in)
			}
			r := sampleReport
			return &ports.SubmitResult{Report: &r}, nil
		},
	}
	h := NewPositionHandler(svc, &stubDispatcher{})

	rec := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/positions/", `{"livreur":"LIV001","latitude":48.85,"longitude":2.35}`)
	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, k := range []string{"position_id", "livreur_id", "latitude", "longitude", "timestamp"} {
		if _, ok := resp[k]; !ok {
			t.Errorf("response missing %q: %+v", k, resp)
		}
	}
}

func TestPositionHandler_Submit_ZeroCoordinatesAccepted(t *testing.T) {
	e := newEcho()
	svc := &stubPositionService{
		submitFn: func(_ context.Context, in ports.SubmitPositionInput) (*ports.SubmitResult, error) {
			r := sampleReport
			r.Latitude, r.Longitude = in.Latitude, in.Longitude
			return &ports.SubmitResult{Report: &r}, nil
		},
	}
	h := NewPositionHandler(svc, &stubDispatcher{})

	rec := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/positions/", `{"livreur":"LIV001","latitude":0,"longitude":0}`)
	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("null island is a valid position, got %v", err)
	}
}

func TestPositionHandler_Submit_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing latitude":   `{"livreur":"LIV001","longitude":2.35}`,
		"latitude too high":  `{"livreur":"LIV001","latitude":91,"longitude":2.35}`,
		"longitude too low":  `{"livreur":"LIV001","latitude":48.85,"longitude":-180.5}`,
		"missing courier id": `{"latitude":48.85,"longitude":2.35}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			h := NewPositionHandler(&stubPositionService{
				submitFn: func(context.Context, ports.SubmitPositionInput) (*ports.SubmitResult, error) {
					t.Fatal("service must not be called for invalid input")
					return nil, nil
				},
			}, &stubDispatcher{})

			err := h.Submit(e.NewContext(jsonRequest(http.MethodPost, "/api/positions/", body), httptest.NewRecorder()))
			if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", code)
			}
		})
	}
}

func TestPositionHandler_Submit_MalformedJSON(t *testing.T) {
	e := newEcho()
	h := NewPositionHandler(&stubPositionService{}, &stubDispatcher{})

	err := h.Submit(e.NewContext(jsonRequest(http.MethodPost, "/api/positions/", `{"livreur":`), httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestPositionHandler_Submit_IdempotentReplay(t *testing.T) {
	e := newEcho()
	svc := &stubPositionService{
		submitFn: func(_ context.Context, in ports.SubmitPositionInput) (*ports.SubmitResult, error) {
			if in.IdempotencyKey != "retry-1" {
				t.Fatalf("expected idempotency key, got %q", in.IdempotencyKey)
			}
			r := sampleReport
			return &ports.SubmitResult{Report: &r, Replayed: true}, nil
		},
	}
	h := NewPositionHandler(svc, &stubDispatcher{})

	req := jsonRequest(http.MethodPost, "/api/positions/", `{"livreur":"LIV001","latitude":48.85,"longitude":2.35}`)
	req.Header.Set(headerIdempotencyKey, "retry-1")
	rec := httptest.NewRecorder()

	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("replay must answer 200, got %d", rec.Code)
	}
	if rec.Header().Get(headerReplayed) != "true" {
		t.Error("replay header missing")
	}
}

func TestPositionHandler_Latest_RequiresFlag(t *testing.T) {
	e := newEcho()
	h := NewPositionHandler(&stubPositionService{latest: []domain.PositionReport{sampleReport}}, &stubDispatcher{})

	rec := httptest.NewRecorder()
	if err := h.Latest(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/positions/", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array without latest=true, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.Latest(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/positions/?latest=true", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 || resp[0]["livreur_id"] != "LIV001" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestPositionHandler_History_Limit(t *testing.T) {
	cases := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, ports.DefaultHistoryLimit},
		{"?limit=10", http.StatusOK, 10},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=101", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tc := range cases {
		e := newEcho()
		svc := &stubPositionService{}
		h := NewPositionHandler(svc, &stubDispatcher{})

		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/livreurs/LIV001/positions/"+tc.query, nil), rec)
		c.SetParamNames("id")
		c.SetParamValues("LIV001")

		err := h.History(c)
		if tc.wantCode != http.StatusOK {
			if code := httpCode(t, err); code != tc.wantCode {
				t.Errorf("query %q: expected %d, got %d", tc.query, tc.wantCode, code)
			}
			continue
		}
		if err != nil {
			t.Fatalf("query %q: handler error: %v", tc.query, err)
		}
		if svc.lastLimit != tc.wantLimit {
			t.Errorf("query %q: expected limit %d, got %d", tc.query, tc.wantLimit, svc.lastLimit)
		}
	}
}

func TestPositionHandler_SubmitBatch(t *testing.T) {
	e := newEcho()
	d := &stubDispatcher{}
	h := NewPositionHandler(&stubPositionService{}, d)

	body := `[{"livreur":"LIV001","latitude":48.85,"longitude":2.35},{"livreur":"LIV002","latitude":48.83,"longitude":2.355}]`
	rec := httptest.NewRecorder()
	if err := h.SubmitBatch(e.NewContext(jsonRequest(http.MethodPost, "/api/positions/batch/", body), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(d.batches) != 1 || len(d.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %+v", d.batches)
	}
}

func TestPositionHandler_SubmitBatch_RejectsWholeBatch(t *testing.T) {
	e := newEcho()
	d := &stubDispatcher{}
	h := NewPositionHandler(&stubPositionService{}, d)

	body := `[{"livreur":"LIV001","latitude":48.85,"longitude":2.35},{"livreur":"LIV002","latitude":95,"longitude":2.355}]`
	err := h.SubmitBatch(e.NewContext(jsonRequest(http.MethodPost, "/api/positions/batch/", body), httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if !strings.Contains(err.Error(), "position[1]") {
		t.Errorf("error should point at the offending entry: %v", err)
	}
	if len(d.batches) != 0 {
		t.Error("nothing may be enqueued when one entry is invalid")
	}

	err = h.SubmitBatch(e.NewContext(jsonRequest(http.MethodPost, "/api/positions/batch/", `[]`), httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", code)
	}
}

func TestPositionHandler_SubmitBatch_DispatcherClosed(t *testing.T) {
	e := newEcho()
	h := NewPositionHandler(&stubPositionService{}, &stubDispatcher{err: errors.New("dispatcher closed")})

	body := `[{"livreur":"LIV001","latitude":48.85,"longitude":2.35}]`
	err := h.SubmitBatch(e.NewContext(jsonRequest(http.MethodPost, "/api/positions/batch/", body), httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

// ---------------------------------------------------------------------------
// Health handlers
// ---------------------------------------------------------------------------

func TestHealth_ReadinessWithoutDependencies(t *testing.T) {
	e := newEcho()
	h := NewHealthDependenciesHandler(nil, nil)

	rec := httptest.NewRecorder()
	if err := h.Readiness(e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Dependencies["mongodb"].Status != "disabled" || resp.Dependencies["redis"].Status != "disabled" {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}
}

func TestHealth_ReadinessDegradedOnFailedPing(t *testing.T) {
	e := newEcho()
	h := &HealthDependenciesHandler{probes: []probe{
		{name: "mongodb", ping: func(context.Context) error { return errors.New("connection refused") }},
		{name: "redis"},
	}}

	rec := httptest.NewRecorder()
	if err := h.Readiness(e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("expected ping error in body: %s", rec.Body.String())
	}
}
