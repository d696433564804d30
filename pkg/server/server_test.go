package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safehdr/pkg/config"
	"safehdr/pkg/header"
	"safehdr/pkg/store"
	"safehdr/pkg/watcher"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.New(config.Config{
		Safes:    []config.SafeConfig{{Address: "0x1111222233334444555566667777888899990000", Chain: "Ethereum"}},
		Chains:   []config.ChainConfig{{Name: "Ethereum", ShortName: "eth", BlockExplorerURITemplate: "https://etherscan.io/address/{{address}}"}},
		Currency: "USD",
		Settings: config.Settings{ShortName: config.ShortNameSettings{Copy: true}},
	}, "", nil)
	w := watcher.NewWatcher(st, 0, nil)
	b := header.NewBuilder(header.Sources{Safe: w, Balances: w, Currency: st, Chains: st, Settings: st})
	return NewServer(w, b, nil)
}

func TestHandleHeader(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest("GET", "/api/header", nil)
	rr := httptest.NewRecorder()

	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "loading", resp["state"])
	assert.Equal(t, "eth:0x1111222233334444555566667777888899990000", resp["copy_text"])
	assert.Len(t, resp["buttons"], 4)
}

func TestHandleHeader_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest("DELETE", "/api/header", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleRefresh(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest("POST", "/api/refresh", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Build once so the header counters have samples.
	s.builder.Build()

	req, _ := http.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "safehdr_header_builds_total")
}

func TestHandleWS(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.mux)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	// Read initial state
	var msg map[string]interface{}
	err = ws.ReadJSON(&msg)
	require.NoError(t, err)
	assert.Equal(t, "initial", msg["type"])

	s.broadcast(watcher.Event{Type: watcher.EventBalancesUpdated})
	err = ws.ReadJSON(&msg)
	require.NoError(t, err)
	assert.Equal(t, "balances_updated", msg["type"])
}
