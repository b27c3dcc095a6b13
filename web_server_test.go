package main

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Readm/i2c_verif/coverage"
	"github.com/Readm/i2c_verif/tb"
)

func testServer() *WebServer {
	return NewWebServer("127.0.0.1:0", NewLogger(LogLevelError, ""))
}

func TestWebServer_ProgressEndpoint(t *testing.T) {
	server := testServer()

	req := httptest.NewRequest("GET", "/api/progress", nil)
	w := httptest.NewRecorder()
	server.handleProgress(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any progress, got %d", w.Code)
	}

	if err := server.UpdateProgress(tb.Progress{Name: "bench", Cycle: 120, Covered: 3, Size: 16}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	w = httptest.NewRecorder()
	server.handleProgress(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var got tb.Progress
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Cycle != 120 || got.Covered != 3 || got.Name != "bench" {
		t.Errorf("Unexpected progress: %+v", got)
	}

	w = httptest.NewRecorder()
	server.handleProgress(w, httptest.NewRequest("POST", "/api/progress", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST, got %d", w.Code)
	}
}

func TestWebServer_CoverageEndpoint(t *testing.T) {
	server := testServer()

	w := httptest.NewRecorder()
	server.handleCoverage(w, httptest.NewRequest("GET", "/api/coverage", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before the report, got %d", w.Code)
	}

	tr := coverage.NewTracker()
	if err := tr.AddPoint(tb.CoverPoint, []int{1, 2, 3, 4}, 1); err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	tr.Record(tb.CoverPoint, 2)
	server.SetReport(tr.Report())

	w = httptest.NewRecorder()
	server.handleCoverage(w, httptest.NewRequest("GET", "/api/coverage", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var rep coverage.Report
	if err := json.NewDecoder(w.Body).Decode(&rep); err != nil {
		t.Fatalf("Failed to decode JSON report: %v", err)
	}
	if rep.Size != 4 || rep.Covered != 1 {
		t.Errorf("Unexpected JSON report: %+v", rep)
	}

	w = httptest.NewRecorder()
	server.handleCoverage(w, httptest.NewRequest("GET", "/api/coverage?format=xml", nil))
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("Expected XML content type, got %q", ct)
	}
	var xrep coverage.Report
	if err := xml.NewDecoder(w.Body).Decode(&xrep); err != nil {
		t.Fatalf("Failed to decode XML report: %v", err)
	}
	if xrep.Size != 4 {
		t.Errorf("Unexpected XML report size %d", xrep.Size)
	}
}

func TestWebServer_WebSocketSendsLatest(t *testing.T) {
	server := testServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer close(server.done)
	go server.hub.run(ctx)

	ts := httptest.NewServer(server.server.Handler)
	defer ts.Close()

	if err := server.UpdateProgress(tb.Progress{Name: "ws", Cycle: 42}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got tb.Progress
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Cycle != 42 || got.Name != "ws" {
		t.Errorf("Unexpected frame: %+v", got)
	}
}

func TestWebServer_Index(t *testing.T) {
	server := testServer()
	w := httptest.NewRecorder()
	server.handleIndex(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/ws") {
		t.Errorf("Unexpected index response %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.handleIndex(w, httptest.NewRequest("GET", "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
