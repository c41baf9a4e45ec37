package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/db"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/export"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/logger"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/migrations"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/seed"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/store"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(database, seed.Config{Demo: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	log := logger.NewNop()
	st := store.New(database)
	return newServer(st, export.NewService(st, st, st, log), log, "RUB")
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeEstimate(t *testing.T, rr *httptest.ResponseRecorder) estimateResponse {
	t.Helper()

	var resp estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v; body=%s", err, rr.Body.String())
	}
	return resp
}

func TestLiveEstimateDoesNotFreeze(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rr := doRequest(t, h, http.MethodGet, "/estimates/demo-designer", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeEstimate(t, rr)
	if resp.Source != export.SourceLive {
		t.Fatalf("source = %s, want live", resp.Source)
	}
	if resp.Snapshot.GrandTotal != resp.Snapshot.TotalWorksPrice+resp.Snapshot.TotalMaterialsPrice {
		t.Fatalf("grand total mismatch: %+v", resp.Snapshot)
	}

	if _, found, err := srv.store.GetSnapshot(context.Background(), "demo-designer"); err != nil || found {
		t.Fatalf("live read stored a snapshot: found=%v err=%v", found, err)
	}
}

func TestExportFreezesAgainstCatalogEdits(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rr := doRequest(t, h, http.MethodPost, "/estimates/demo-rooms/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export: status %d: %s", rr.Code, rr.Body.String())
	}
	frozen := decodeEstimate(t, rr)
	if frozen.Source != export.SourceComputed {
		t.Fatalf("first export source = %s, want computed", frozen.Source)
	}

	rr = doRequest(t, h, http.MethodPut, "/admin/coefficients/contractor-markup",
		`{"name":"Наценка подрядчика","value":1.5,"kind":"normal"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update coefficient: status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, h, http.MethodPost, "/estimates/demo-rooms/export", "")
	again := decodeEstimate(t, rr)
	if again.Source != export.SourceReused || again.Snapshot.GrandTotal != frozen.Snapshot.GrandTotal {
		t.Fatalf("re-export drifted: source=%s total=%v, want reused %v", again.Source, again.Snapshot.GrandTotal, frozen.Snapshot.GrandTotal)
	}

	live := decodeEstimate(t, doRequest(t, h, http.MethodGet, "/estimates/demo-rooms", ""))
	if live.Snapshot.GrandTotal == frozen.Snapshot.GrandTotal {
		t.Fatalf("live total should follow the edited catalog")
	}

	rr = doRequest(t, h, http.MethodPost, "/estimates/demo-rooms/export?recompute=1", "")
	recomputed := decodeEstimate(t, rr)
	if recomputed.Source != export.SourceRecomputed || recomputed.Snapshot.GrandTotal != live.Snapshot.GrandTotal {
		t.Fatalf("recompute: source=%s total=%v, want recomputed %v", recomputed.Source, recomputed.Snapshot.GrandTotal, live.Snapshot.GrandTotal)
	}

	list := doRequest(t, h, http.MethodGet, "/estimates/?q=demo", "")
	if list.Code != http.StatusOK {
		t.Fatalf("list: status %d", list.Code)
	}
}

func TestExportRecoversFromCorruptSnapshot(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	if err := srv.store.PutSnapshot(context.Background(), "demo-designer", []byte(`{"worksData":`)); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}

	rr := doRequest(t, h, http.MethodPost, "/estimates/demo-designer/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeEstimate(t, rr); resp.Source != export.SourceRecoveredCorrupt {
		t.Fatalf("source = %s, want recovered-corrupt", resp.Source)
	}

	raw, _, err := srv.store.GetSnapshot(context.Background(), "demo-designer")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if _, err := snapshot.Decode(raw); err != nil {
		t.Fatalf("stored snapshot still corrupt: %v", err)
	}
}

func TestExportFiles(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	tests := []struct {
		path        string
		contentType string
		prefix      []byte
	}{
		{"/estimates/demo-rooms/export.xlsx", "spreadsheetml", []byte("PK")},
		{"/estimates/demo-rooms/export.pdf", "application/pdf", []byte("%PDF-")},
		{"/estimates/demo-rooms/export.html", "text/html", []byte("<!DOCTYPE html>")},
		{"/estimates/demo-rooms/export.txt", "text/plain", []byte("Ремонт")},
	}
	for _, tt := range tests {
		rr := doRequest(t, h, http.MethodGet, tt.path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", tt.path, rr.Code, rr.Body.String())
		}
		if !strings.Contains(rr.Header().Get("Content-Type"), tt.contentType) {
			t.Fatalf("%s: content type %q", tt.path, rr.Header().Get("Content-Type"))
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), tt.prefix) {
			t.Fatalf("%s: unexpected body prefix %q", tt.path, rr.Body.Bytes()[:min(16, rr.Body.Len())])
		}
	}

	// Every download after the first reuses the same frozen snapshot.
	raw, found, err := srv.store.GetSnapshot(context.Background(), "demo-rooms")
	if err != nil || !found {
		t.Fatalf("GetSnapshot: found=%v err=%v", found, err)
	}
	if _, err := snapshot.Decode(raw); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestMoveBlockRejectsCycle(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/blocks/demo-designer-prep/move", strings.NewReader(`{"parentId":"demo-designer-floor"}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "demo-designer-prep")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	srv.handleBlockMove(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, srv.routes(), http.MethodPost, "/blocks/demo-designer-floor/move", `{"parentId":""}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("move to root: status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, srv.routes(), http.MethodPost, "/blocks/demo-rooms-kitchen-walls/move", `{"parentId":"demo-rooms-bath-tile"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("nesting contractor block: status %d, want 409", rr.Code)
	}
}

func TestManualPriceAndValidation(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rr := doRequest(t, h, http.MethodPut, "/estimates/demo-designer/lines/demo-designer-l1/price", `{"unitPrice":-5}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative price: status %d, want 422", rr.Code)
	}

	rr = doRequest(t, h, http.MethodPut, "/estimates/demo-designer/lines/demo-designer-l1/price", `{"unitPrice":1000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("manual price: status %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeEstimate(t, rr)
	var found bool
	for _, row := range resp.Snapshot.WorksData {
		if row.LineID == "demo-designer-l1" {
			found = true
			// Manual work lines skip the normal coefficient (1.15 selected on this estimate).
			if !row.Manual || row.UnitPrice != 1000 {
				t.Fatalf("manual row = %+v, want unit price 1000", row)
			}
		}
	}
	if !found {
		t.Fatalf("line demo-designer-l1 missing from works data")
	}

	rr = doRequest(t, h, http.MethodPut, "/estimates/demo-designer/coefficients", `{"coefficients":"oops"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad body: status %d, want 400", rr.Code)
	}

	rr = doRequest(t, h, http.MethodGet, "/estimates/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing estimate: status %d, want 404", rr.Code)
	}
}

func TestCoefficientAdmin(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rr := doRequest(t, h, http.MethodPost, "/admin/coefficients/", `{"name":"Срочность","value":0,"kind":"normal"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero coefficient: status %d, want 422", rr.Code)
	}

	rr = doRequest(t, h, http.MethodPost, "/admin/coefficients/", `{"name":"Срочность","value":1.2,"kind":"normal"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, h, http.MethodGet, "/admin/coefficients/", "")
	var catalog []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &catalog); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(catalog) != 4 {
		t.Fatalf("catalog size = %d, want 4", len(catalog))
	}

	rr = doRequest(t, h, http.MethodDelete, "/admin/coefficients/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing: status %d, want 404", rr.Code)
	}
}

func TestCreateEstimateRejectsOverflowAndTakenIDs(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	tests := []struct {
		name string
		body string
	}{
		{"overflowing line total", `{"title":"Overflow","type":"designer","blocks":[{"id":"ov","title":"x","items":[{"id":"ov1","kind":"work","quantity":1e200,"unitPrice":1e200}]}]}`},
		{"line id of another estimate", `{"title":"Copy","type":"designer","blocks":[{"id":"cp","title":"x","items":[{"id":"demo-rooms-l1","kind":"work","quantity":1,"unitPrice":10}]}]}`},
		{"manual price for a foreign line", `{"title":"Copy","type":"designer","manualPrices":["demo-rooms-l3"],"blocks":[{"id":"cp","title":"x","items":[{"id":"cp1","kind":"work","quantity":1,"unitPrice":10}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, h, http.MethodPost, "/estimates", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status %d, want 422: %s", rr.Code, rr.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Error == "" {
				t.Fatalf("expected JSON error body, got %q", rr.Body.String())
			}
		})
	}

	rr := doRequest(t, h, http.MethodGet, "/estimates/demo-rooms", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("demo estimate damaged: status %d", rr.Code)
	}
}

func TestWriteJSONNeverSendsEmptySuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]float64{"grandTotal": math.Inf(1)})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rr.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Error == "" {
		t.Fatalf("expected JSON error body, got %q", rr.Body.String())
	}
}
