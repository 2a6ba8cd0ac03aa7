package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// fakeService implements Service for handler tests.
type fakeService struct {
	ready  bool
	events []types.Event
	got    types.Request
}

func (f *fakeService) Dispatch(ctx context.Context, req types.Request, emit func(types.Event)) {
	f.got = req
	for _, e := range f.events {
		emit(e)
	}
}

func (f *fakeService) Models() map[string]types.ModelDescriptor {
	return map[string]types.ModelDescriptor{
		"smollm2-360m": {ID: "smollm2-360m"},
	}
}

func (f *fakeService) Status() types.StatusResponse {
	return types.StatusResponse{State: "idle"}
}

func (f *fakeService) Ready() bool { return f.ready }

func TestHealthz(t *testing.T) {
	h := NewMux(&fakeService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	svc := &fakeService{}
	h := NewMux(svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("uninitialized readyz status = %d", rec.Code)
	}

	svc.ready = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready readyz status = %d", rec.Code)
	}
}

func TestModelsEndpoint(t *testing.T) {
	h := NewMux(&fakeService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("models status = %d", rec.Code)
	}
	var payload types.ModelsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if _, ok := payload.Models["smollm2-360m"]; !ok {
		t.Fatalf("models payload missing preset: %v", payload.Models)
	}
}

func TestWorkerStreamsNDJSON(t *testing.T) {
	svc := &fakeService{events: []types.Event{
		{Type: "generateChat", Status: types.StatusStart},
		{Type: "generateChat", Status: types.StatusStreaming},
		{Type: "generateChat", Status: types.StatusComplete},
	}}
	h := NewMux(svc)

	body := strings.NewReader(`{"type":"generateChat","id":"r1","data":{"message":"hi"}}`)
	req := httptest.NewRequest(http.MethodPost, "/worker", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("worker status = %d body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content type = %q", ct)
	}
	if svc.got.ID != "r1" {
		t.Fatalf("dispatched request id = %q", svc.got.ID)
	}

	var lines []types.Event
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		var e types.Event
		if err := json.Unmarshal([]byte(sc.Text()), &e); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", sc.Text(), err)
		}
		lines = append(lines, e)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 events, got %d", len(lines))
	}
	if lines[0].Status != types.StatusStart || lines[2].Status != types.StatusComplete {
		t.Fatalf("unexpected event order: %+v", lines)
	}
}

func TestWorkerRejectsWrongContentType(t *testing.T) {
	h := NewMux(&fakeService{})
	req := httptest.NewRequest(http.MethodPost, "/worker", strings.NewReader(`{"type":"check"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWorkerRejectsBadJSON(t *testing.T) {
	h := NewMux(&fakeService{})
	req := httptest.NewRequest(http.MethodPost, "/worker", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if er.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestWorkerRequiresType(t *testing.T) {
	h := NewMux(&fakeService{})
	req := httptest.NewRequest(http.MethodPost, "/worker", strings.NewReader(`{"id":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
