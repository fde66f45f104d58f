// Package httpapi exposes the city portal over HTTP: registration and
// login, wallet operations, bill payments through the command slot, the
// admin panel, and a live announcement stream.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"qala.org/internal/banking"
	"qala.org/internal/city"
	"qala.org/internal/mail"
	"qala.org/internal/obs"
	"qala.org/internal/session"
	"qala.org/internal/stream"
)

// ReadyProbe reports whether the backing store is reachable. Memory-only
// deployments have no DB and are always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Controller *city.Controller
	Login      *city.Login
	Fiat       banking.Service
	Crypto     banking.Service
	Mailer     mail.Mailer
	Stream     *stream.Stream
	Ready      ReadyProbe
	Version    string
	TokenTTL   time.Duration
}

// API is the HTTP layer.
type API struct {
	mux     *http.ServeMux
	probe   ReadyProbe
	version string

	ctrl     *city.Controller
	login    *city.Login
	fiat     banking.Service
	crypto   banking.Service
	mailer   mail.Mailer
	stream   *stream.Stream
	tokenTTL time.Duration

	// serializes set-then-execute on the shared command slot
	dispatchMu sync.Mutex
}

func New(d Deps) *API {
	a := &API{
		mux:      http.NewServeMux(),
		probe:    d.Ready,
		version:  d.Version,
		ctrl:     d.Controller,
		login:    d.Login,
		fiat:     d.Fiat,
		crypto:   d.Crypto,
		mailer:   d.Mailer,
		stream:   d.Stream,
		tokenTTL: d.TokenTTL,
	}
	if a.tokenTTL <= 0 {
		a.tokenTTL = time.Hour
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// portal
	a.mux.HandleFunc("/v1/register", a.handleRegister)
	a.mux.HandleFunc("/v1/login", a.handleLogin)
	a.mux.HandleFunc("/v1/admin/login", a.handleAdminLogin)

	// citizen surface
	a.mux.HandleFunc("/v1/wallet/load", a.requireRole(session.RoleCitizen, a.handleWalletLoad))
	a.mux.HandleFunc("/v1/wallet/balance", a.requireRole(session.RoleCitizen, a.handleWalletBalance))
	a.mux.HandleFunc("/v1/bills/pay", a.requireRole(session.RoleCitizen, a.handlePayBill))
	a.mux.HandleFunc("/v1/parking/pay", a.requireRole(session.RoleCitizen, a.handlePayParking))
	a.mux.HandleFunc("/v1/home/logs", a.requireRole(session.RoleCitizen, a.handleHomeLogs))
	a.mux.HandleFunc("/v1/home/report", a.requireRole(session.RoleCitizen, a.handleHomeReport))
	a.mux.HandleFunc("/v1/profile/phone", a.requireRole(session.RoleCitizen, a.handleUpdatePhone))

	// admin panel
	a.mux.HandleFunc("/v1/admin/users", a.requireRole(session.RoleAdmin, a.handleListUsers))
	a.mux.HandleFunc("/v1/admin/users/search", a.requireRole(session.RoleAdmin, a.handleSearchUsers))
	a.mux.HandleFunc("/v1/admin/broadcast", a.requireRole(session.RoleAdmin, a.handleBroadcast))
	a.mux.HandleFunc("/v1/admin/logs/export", a.requireRole(session.RoleAdmin, a.handleExportLogs))

	// live announcements
	a.mux.HandleFunc("/v1/events", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wires the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- health handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "qala-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.probe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "qala-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// Stream handles Server-Sent Events for live announcements.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx)

	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
