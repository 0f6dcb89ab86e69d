package gomon

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestHandler(t *testing.T) (*Factory, http.Handler) {
	t.Helper()
	factory := NewFactory(nil)
	repo := NewRepository(factory)
	return factory, Handler(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandler_ListMonitors(t *testing.T) {
	factory, handler := newTestHandler(t)
	factory.Add("req.latency", UnitsMilliseconds, 10)
	factory.Add("payload", UnitsBytes, 512)

	rec := doRequest(t, handler, http.MethodGet, "/monitors")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []Stats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 monitors, got %d", len(got))
	}
	if got[0].Label != "req.latency" || got[1].Label != "payload" {
		t.Fatalf("unexpected listing order: %q, %q", got[0].Label, got[1].Label)
	}
}

func TestHandler_ListMonitorsFiltered(t *testing.T) {
	factory, handler := newTestHandler(t)
	factory.Add("a", UnitsMilliseconds, 1)
	factory.Add("b", UnitsMilliseconds, 2)

	rec := doRequest(t, handler, http.MethodGet, "/monitors?label=b")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []Stats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].Label != "b" {
		t.Fatalf("expected only the b monitor, got %v", got)
	}
}

func TestHandler_GetMonitor(t *testing.T) {
	factory, handler := newTestHandler(t)
	factory.Add("req.latency", UnitsMilliseconds, 10)
	factory.Add("req.latency", UnitsMilliseconds, 30)

	t.Run("found", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/monitors/req.latency")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got Stats
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Label != "req.latency" || got.Hits != 2 || got.Avg != 20 {
			t.Fatalf("unexpected stats: %+v", got)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/monitors/missing")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("duplicate_label_conflict", func(t *testing.T) {
		factory.Add("req.latency", UnitsBytes, 100)
		rec := doRequest(t, handler, http.MethodGet, "/monitors/req.latency")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		var got errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if got.Error == "" {
			t.Fatal("expected error message in response")
		}
	})
}

func TestHandler_DeleteMonitors(t *testing.T) {
	factory, handler := newTestHandler(t)
	factory.Add("a", UnitsMilliseconds, 1)

	rec := doRequest(t, handler, http.MethodDelete, "/monitors")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := len(factory.ListAll()); got != 0 {
		t.Fatalf("expected empty registry after delete, got %d monitors", got)
	}
}
