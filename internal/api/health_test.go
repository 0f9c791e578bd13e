package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeIndexProbe struct {
	count int64
	err   error
}

func (f *fakeIndexProbe) Count(_ context.Context) (int64, error) {
	return f.count, f.err
}

type fakeEmbedProbe struct {
	err      error
	lastText string
}

func (f *fakeEmbedProbe) Embed(_ context.Context, text string) ([]float32, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func TestLiveness(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)

	liveness(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("liveness() status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	decodeBody(t, w, &body)

	if body["status"] != "ok" {
		t.Errorf("liveness() status = %q, want %q", body["status"], "ok")
	}
}

func TestReadiness_NoPool(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ready", nil)

	readiness(nil)(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readiness(nil pool) status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHealth_AllComponentsOK(t *testing.T) {
	embed := &fakeEmbedProbe{}
	h := &healthHandler{index: &fakeIndexProbe{count: 12}, embedder: embed, logger: discardLogger()}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	h.health(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("health() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp healthResponse
	decodeBody(t, w, &resp)

	if resp.Status != "ok" {
		t.Errorf("health() status = %q, want %q", resp.Status, "ok")
	}
	if resp.Components["index"] != "ok" || resp.Components["embedder"] != "ok" {
		t.Errorf("health() components = %v, want all ok", resp.Components)
	}
	if embed.lastText != "test" {
		t.Errorf("health() embed probe text = %q, want %q", embed.lastText, "test")
	}
}

func TestHealth_IndexDown(t *testing.T) {
	h := &healthHandler{
		index:    &fakeIndexProbe{err: errors.New("connection refused")},
		embedder: &fakeEmbedProbe{},
		logger:   discardLogger(),
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	h.health(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health(index down) status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp healthResponse
	decodeBody(t, w, &resp)

	if resp.Status != "degraded" {
		t.Errorf("health(index down) status = %q, want %q", resp.Status, "degraded")
	}
	if resp.Components["index"] != "error" {
		t.Errorf("health(index down) index = %q, want %q", resp.Components["index"], "error")
	}
	if resp.Components["embedder"] != "ok" {
		t.Errorf("health(index down) embedder = %q, want %q", resp.Components["embedder"], "ok")
	}
}

func TestHealth_EmbedderDown(t *testing.T) {
	h := &healthHandler{
		index:    &fakeIndexProbe{count: 12},
		embedder: &fakeEmbedProbe{err: errors.New("provider timeout")},
		logger:   discardLogger(),
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	h.health(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health(embedder down) status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp healthResponse
	decodeBody(t, w, &resp)

	if resp.Components["embedder"] != "error" {
		t.Errorf("health(embedder down) embedder = %q, want %q", resp.Components["embedder"], "error")
	}
}

func TestHealth_MissingProbes(t *testing.T) {
	h := &healthHandler{logger: discardLogger()}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	h.health(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health(no probes) status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
