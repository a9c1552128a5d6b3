package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gardencore/internal/core"
	"gardencore/internal/infra/persistence/memory"
	"gardencore/internal/token"
	"gardencore/internal/vault"
	"gardencore/pkg/domain"
)

type apiFixture struct {
	store  *memory.Store
	server *httptest.Server
	now    time.Time
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		store: memory.NewStore(domain.NewRulesEngine()),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.store.SetNowFunc(func() time.Time { return f.now })
	logger := slog.New(slog.DiscardHandler)
	ledger := token.NewLedger()
	pool := vault.New(f.store)
	garden := core.NewGardenService(f.store, ledger, "admin")
	plots := core.NewPlotService(f.store, pool, "admin")
	handler := newAPI(garden, plots, pool, ledger, "QmRef", logger)
	mux := http.NewServeMux()
	handler.register(mux)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *apiFixture) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, decodeBody(t, resp)
}

func (f *apiFixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestAPIPlantAndQuery(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/v1/plants", `{"owner":"alice","quantity":5,"payment":"0.005"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("plant status %d body %+v", resp.StatusCode, body)
	}
	plant, ok := body["plant"].(map[string]any)
	if !ok || plant["id"].(float64) != 1 {
		t.Fatalf("plant body: %+v", body)
	}

	resp, body = f.get(t, "/v1/plants/1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.get(t, "/v1/plants/1/tier")
	if resp.StatusCode != http.StatusOK || body["tier"].(float64) != float64(domain.TierGrower) {
		t.Fatalf("tier status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.get(t, "/v1/plants/9")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing plant status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.get(t, "/v1/treasury")
	if resp.StatusCode != http.StatusOK || body["treasury"].(float64) != 5000 {
		t.Fatalf("treasury status %d body %+v", resp.StatusCode, body)
	}
}

func TestAPIFeeRejection(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/v1/plants", `{"owner":"alice","quantity":5,"payment":"0.004"}`)
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("underpayment status %d body %+v", resp.StatusCode, body)
	}
	if got := body["error"].(string); got != "need 0.005 GRDN to plant" {
		t.Fatalf("underpayment message %q", got)
	}

	resp, body = f.post(t, "/v1/plants", `{"owner":"alice","quantity":0,"payment":"0.001"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero quantity status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.post(t, "/v1/plants", `{"owner":"alice","quantity":1,"payment":"abc"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad amount status %d body %+v", resp.StatusCode, body)
	}
}

func TestAPIWaterAndAdvance(t *testing.T) {
	f := newAPIFixture(t)
	if resp, body := f.post(t, "/v1/plants", `{"owner":"alice","quantity":1,"payment":"0.001"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("plant status %d body %+v", resp.StatusCode, body)
	}

	resp, body := f.post(t, "/v1/plants/1/water", `{"caller":"alice","payment":"0.0001"}`)
	if resp.StatusCode != http.StatusOK || body["water_level"].(float64) != 120 {
		t.Fatalf("water status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.post(t, "/v1/plants/1/water", `{"caller":"mallory","payment":"0.0001"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign water status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.post(t, "/v1/plants/1/advance", "{}")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("early advance status %d body %+v", resp.StatusCode, body)
	}

	f.now = f.now.Add(domain.StageDwell)
	resp, body = f.post(t, "/v1/plants/1/advance", "{}")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance status %d body %+v", resp.StatusCode, body)
	}
	plant := body["plant"].(map[string]any)
	if plant["stage"].(float64) != float64(domain.StageSprout) {
		t.Fatalf("advance body: %+v", body)
	}
}

func TestAPIPlotFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/v1/plot", `{"owner":"alice","name":"fern","payment":"0.001"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("plot status %d body %+v", resp.StatusCode, body)
	}
	resp, body = f.post(t, "/v1/plot", `{"owner":"alice","name":"rose","payment":"0.001"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate plot status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.post(t, "/v1/pool/deposit", `{"caller":"admin","amount":"0.1"}`)
	if resp.StatusCode != http.StatusOK || body["pool"].(float64) != 100_000 {
		t.Fatalf("deposit status %d body %+v", resp.StatusCode, body)
	}
	resp, body = f.post(t, "/v1/pool/deposit", `{"caller":"mallory","amount":"0.1"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin deposit status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.post(t, "/v1/plot/water", `{"owner":"alice","payment":"0.001"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("water status %d body %+v", resp.StatusCode, body)
	}

	resp, body = f.get(t, "/v1/plot?owner=alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get plot status %d body %+v", resp.StatusCode, body)
	}
	plot := body["plot"].(map[string]any)
	if plot["waterings"].(float64) != 1 {
		t.Fatalf("plot body: %+v", body)
	}

	resp, body = f.get(t, "/v1/plot?owner=nobody")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing plot status %d body %+v", resp.StatusCode, body)
	}

	f.now = f.now.Add(domain.PlotNeglectWindow + time.Hour)
	resp, body = f.post(t, "/v1/plot/water", `{"owner":"alice","payment":"0.001"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("dead plot water status %d body %+v", resp.StatusCode, body)
	}
}

func TestAPIEventsAndWithdraw(t *testing.T) {
	f := newAPIFixture(t)
	if resp, body := f.post(t, "/v1/plants", `{"owner":"alice","quantity":1,"payment":"0.001"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("plant status %d body %+v", resp.StatusCode, body)
	}

	resp, body := f.get(t, "/v1/events")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status %d body %+v", resp.StatusCode, body)
	}
	events := body["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("events body: %+v", body)
	}

	resp, body = f.post(t, "/v1/treasury/withdraw", `{"caller":"admin"}`)
	if resp.StatusCode != http.StatusOK || body["withdrawn"].(float64) != 1000 {
		t.Fatalf("withdraw status %d body %+v", resp.StatusCode, body)
	}
	resp, body = f.post(t, "/v1/treasury/withdraw", `{"caller":"mallory"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign withdraw status %d body %+v", resp.StatusCode, body)
	}
}
