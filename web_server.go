package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Readm/i2c_verif/coverage"
	"github.com/Readm/i2c_verif/tb"
)

// WebServer exposes run progress and the coverage report over HTTP and streams progress frames
// over a WebSocket.
type WebServer struct {
	mu     sync.RWMutex
	latest *tb.Progress
	report *coverage.Report

	hub    *wsHub
	server *http.Server
	log    *Logger
	done   chan struct{}
}

// NewWebServer creates a new web server instance.
func NewWebServer(addr string, log *Logger) *WebServer {
	ws := &WebServer{
		hub:  newHub(log),
		log:  log,
		done: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/progress", ws.handleProgress)
	mux.HandleFunc("/api/coverage", ws.handleCoverage)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) { ws.hub.handle(ws, w, r) })
	mux.HandleFunc("/", ws.handleIndex)

	ws.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// Serve listens until ctx is cancelled.
func (ws *WebServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", ws.server.Addr)
	if err != nil {
		return err
	}
	ws.log.Infof("Web view on http://%s/", ln.Addr())

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go ws.hub.run(hubCtx)

	go func() {
		<-ctx.Done()
		close(ws.done)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ws.server.Shutdown(shutdownCtx)
	}()

	if err := ws.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// UpdateProgress stores the latest frame and pushes it to WebSocket clients.
func (ws *WebServer) UpdateProgress(p tb.Progress) error {
	ws.mu.Lock()
	ws.latest = &p
	ws.mu.Unlock()
	ws.hub.broadcastFrame(p)
	return nil
}

// SetReport publishes the final coverage report.
func (ws *WebServer) SetReport(r coverage.Report) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.report = &r
}

func (ws *WebServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws.mu.RLock()
	p := ws.latest
	ws.mu.RUnlock()

	if p == nil {
		http.Error(w, "No progress available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		http.Error(w, "Failed to encode progress", http.StatusInternalServerError)
	}
}

func (ws *WebServer) handleCoverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws.mu.RLock()
	report := ws.report
	ws.mu.RUnlock()

	if report == nil {
		http.Error(w, "No coverage report available", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		if err := report.WriteXML(w); err != nil {
			http.Error(w, "Failed to encode coverage", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w); err != nil {
		http.Error(w, "Failed to encode coverage", http.StatusInternalServerError)
	}
}

const indexPage = `<!doctype html>
<html><head><title>i2c_verif</title></head>
<body>
<pre id="progress">waiting for progress...</pre>
<p><a href="/api/coverage">coverage report (json)</a> | <a href="/api/coverage?format=xml">xml</a></p>
<script>
const out = document.getElementById("progress");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => { out.textContent = JSON.stringify(JSON.parse(ev.data), null, 2); };
</script>
</body></html>
`

func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}
