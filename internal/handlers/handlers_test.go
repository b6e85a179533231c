package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coinfolio/internal/database"
	"coinfolio/internal/metrics"
	"coinfolio/internal/models"
	"coinfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTickers struct {
	snapshot  []models.TickerEntry
	refreshOK bool
	refreshes int
}

func (s *stubTickers) Snapshot() []models.TickerEntry { return s.snapshot }
func (s *stubTickers) Lookup(symbol string) (models.TickerEntry, bool) {
	for _, e := range s.snapshot {
		if strings.EqualFold(e.Symbol, symbol) {
			return e, true
		}
	}
	return models.TickerEntry{}, false
}
func (s *stubTickers) Status() service.Status {
	return service.Status{Size: len(s.snapshot)}
}
func (s *stubTickers) Refresh() bool {
	s.refreshes++
	return s.refreshOK
}
func (s *stubTickers) Start(context.Context, time.Duration) {}

var testSnapshot = []models.TickerEntry{
	{Symbol: "BTCUSDT", LastPrice: "65000", WeightedAvgPrice: "64800"},
	{Symbol: "ETHUSDT", LastPrice: "3400", WeightedAvgPrice: "3390"},
	{Symbol: "BNBUSDT", LastPrice: "580", WeightedAvgPrice: "575"},
}

type fixture struct {
	engine  *gin.Engine
	store   *service.Store
	tickers *stubTickers
}

func setup(t *testing.T, loaded bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	store := service.NewStore(database.NewMemory(), "portfolio", log, m)
	tickers := &stubTickers{}
	if loaded {
		tickers.snapshot = testSnapshot
		require.NoError(t, store.ApplySnapshot(context.Background(), testSnapshot))
	}

	rg := gin.New()
	NewHandler(store, tickers, m, log).Register(rg)
	return &fixture{engine: rg, store: store, tickers: tickers}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	f := setup(t, false)
	code, body := f.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestPostHolding_BeforeSnapshot(t *testing.T) {
	f := setup(t, false)
	code, _ := f.do(t, "POST", "/portfolio", `{"symbol":"ETHUSDT","unit":3}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestPostHolding_AddThenUpdate(t *testing.T) {
	f := setup(t, true)

	code, body := f.do(t, "POST", "/portfolio", `{"symbol":"ETHUSDT","unit":3}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["added"])

	code, body = f.do(t, "POST", "/portfolio", `{"symbol":"ethusdt","unit":"7"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["added"])

	code, body = f.do(t, "GET", "/portfolio", "")
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "ETHUSDT", item["symbol"])
	assert.Equal(t, float64(7), item["unit"])
	assert.Equal(t, "23800", item["value"])
	assert.Equal(t, "23800.00", body["total_value"])
}

func TestPostHolding_Validation(t *testing.T) {
	f := setup(t, true)

	code, _ := f.do(t, "POST", "/portfolio", `{"symbol":"DOGEUSDT","unit":1}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, "POST", "/portfolio", `{"unit":1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, "POST", "/portfolio", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	// empty and oversized units are coerced, not rejected
	code, _ = f.do(t, "POST", "/portfolio", `{"symbol":"BTCUSDT","unit":""}`)
	require.Equal(t, http.StatusCreated, code)
	code, _ = f.do(t, "POST", "/portfolio", `{"symbol":"BNBUSDT","unit":250000}`)
	require.Equal(t, http.StatusCreated, code)

	u, _ := f.store.Unit("BTCUSDT")
	assert.Equal(t, "1", u.String())
	u, _ = f.store.Unit("BNBUSDT")
	assert.Equal(t, "100000", u.String())
}

func TestPutAndDeleteHolding(t *testing.T) {
	f := setup(t, true)
	code, _ := f.do(t, "POST", "/portfolio", `{"symbol":"BTCUSDT","unit":2}`)
	require.Equal(t, http.StatusCreated, code)

	code, _ = f.do(t, "PUT", "/portfolio/btcusdt", `{"unit":"4.5"}`)
	require.Equal(t, http.StatusOK, code)
	u, _ := f.store.Unit("BTCUSDT")
	assert.Equal(t, "4.5", u.String())

	// string units are decoded as JSON strings, escapes included
	code, _ = f.do(t, "PUT", "/portfolio/BTCUSDT", `{"unit":"\u0036"}`)
	require.Equal(t, http.StatusOK, code)
	u, _ = f.store.Unit("BTCUSDT")
	assert.Equal(t, "6", u.String())

	code, _ = f.do(t, "PUT", "/portfolio/BTCUSDT", `{"unit":null}`)
	require.Equal(t, http.StatusOK, code)
	u, _ = f.store.Unit("BTCUSDT")
	assert.Equal(t, "1", u.String())

	code, _ = f.do(t, "PUT", "/portfolio/ETHUSDT", `{"unit":1}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := f.do(t, "DELETE", "/portfolio/BTCUSDT", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["removed"])
	assert.Empty(t, body["items"])

	code, body = f.do(t, "DELETE", "/portfolio/BTCUSDT", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["removed"])
}

func TestGetTickers_Filter(t *testing.T) {
	f := setup(t, true)
	code, _ := f.do(t, "POST", "/portfolio", `{"symbol":"ETHUSDT","unit":3}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := f.do(t, "GET", "/tickers?q=eth", "")
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "ETHUSDT", item["symbol"])
	assert.Equal(t, true, item["held"])
	assert.Equal(t, float64(3), item["unit"])

	code, body = f.do(t, "GET", "/tickers?q=b", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])
	first := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, false, first["held"])
	assert.Equal(t, float64(1), first["unit"])
}

func TestGetChart(t *testing.T) {
	f := setup(t, true)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest("GET", "/portfolio/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[["Coin","Unit"],["No Coin",1]]`, rec.Body.String())

	code, _ := f.do(t, "POST", "/portfolio", `{"symbol":"BTCUSDT","unit":2}`)
	require.Equal(t, http.StatusCreated, code)
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest("GET", "/portfolio/chart", nil))
	assert.JSONEq(t, `[["Coin","Unit"],["BTCUSDT",2]]`, rec.Body.String())
}

func TestPostRefresh(t *testing.T) {
	f := setup(t, true)
	f.tickers.refreshOK = true
	code, body := f.do(t, "POST", "/refresh", "")
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "scheduled", body["status"])

	f.tickers.refreshOK = false
	code, body = f.do(t, "POST", "/refresh", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "in_flight", body["status"])
	assert.Equal(t, 2, f.tickers.refreshes)
}

func TestStatusAndMetrics(t *testing.T) {
	f := setup(t, true)
	code, body := f.do(t, "GET", "/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["snapshot_size"])
	assert.Equal(t, false, body["is_loading"])

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coinfolio_portfolio_saves_total")
}

func TestServeWS_PushesPortfolio(t *testing.T) {
	f := setup(t, true)
	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() portfolioEvent {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev portfolioEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	}

	ev := read()
	assert.Equal(t, "portfolio", ev.Type)
	assert.Empty(t, ev.Items)
	assert.Equal(t, "0.00", ev.TotalValue)

	_, err = f.store.Add(context.Background(), testSnapshot[0], models.U(2))
	require.NoError(t, err)

	ev = read()
	require.Len(t, ev.Items, 1)
	assert.Equal(t, "BTCUSDT", ev.Items[0].Symbol)
	assert.Equal(t, "130000.00", ev.TotalValue)
}
