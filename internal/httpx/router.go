package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/repository"
	eventsvc "github.com/Ravichandra89/TuteDude-Assessment/internal/service/events"
	reportsvc "github.com/Ravichandra89/TuteDude-Assessment/internal/service/report"
	sessionsvc "github.com/Ravichandra89/TuteDude-Assessment/internal/service/session"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/signaling"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/ws"
)

// Router wires HTTP and websocket endpoints to services.
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	sessions  sessionsvc.Service
	events    eventsvc.Service
	reports   reportsvc.Service
	signaling *signaling.Handler
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	limiter   RateLimiter
	dbHealth  func(context.Context) error
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitWrite     = 120
	rateLimitRead      = 240
	rateLimitIngest    = 600
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, sessions sessionsvc.Service, events eventsvc.Service, reports reportsvc.Service, relay *signaling.Handler, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		sessions:  sessions,
		events:    events,
		reports:   reports,
		signaling: relay,
		hub:       hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.HandleFunc("/candidates", r.audit(r.withRateLimit(rateLimitWrite, rateWindowDefault, rateLimitKeyIP, r.handleCandidates)))
	r.mux.HandleFunc("/sessions", r.audit(r.withRateLimit(rateLimitWrite, rateWindowDefault, rateLimitKeyIP, r.handleSessions)))
	r.mux.HandleFunc("/sessions/", r.audit(r.withRateLimit(rateLimitWrite, rateWindowDefault, rateLimitKeyIP, r.handleSessionSubroutes)))
	r.mux.HandleFunc("/logs", r.audit(r.withRateLimit(rateLimitIngest, rateWindowDefault, rateLimitKeyIP, r.handleLogsIngest)))
	r.mux.HandleFunc("/logs/", r.audit(r.withRateLimit(rateLimitRead, rateWindowDefault, rateLimitKeyIP, r.handleLogsQuery)))
	r.mux.HandleFunc("/reports/", r.audit(r.withRateLimit(rateLimitRead, rateWindowDefault, rateLimitKeyIP, r.handleReport)))
	r.mux.HandleFunc("/ws/signaling", r.audit(r.withRateLimit(rateLimitWebsocket, rateWindowRealtime, rateLimitKeyIP, r.handleSignalingWS)))
}

func (r *Router) handleCandidates(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	candidate, err := r.sessions.CreateCandidate(req.Context(), payload.Name, payload.Email)
	if err != nil {
		r.serviceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "candidate": candidate})
}

func (r *Router) handleSessions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		CandidateID string     `json:"candidateId"`
		StartTime   *time.Time `json:"startTime"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := r.sessions.Create(req.Context(), payload.CandidateID, payload.StartTime)
	if err != nil {
		r.serviceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "session": session})
}

func (r *Router) handleSessionSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/sessions/")
	parts := strings.Split(trimmed, "/")
	sessionID := parts[0]
	if sessionID == "" {
		r.notFound(w)
		return
	}

	if len(parts) == 1 {
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		session, err := r.sessions.Get(req.Context(), sessionID)
		if err != nil {
			r.serviceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": session})
		return
	}

	if len(parts) != 2 {
		r.notFound(w)
		return
	}
	if req.Method != http.MethodPatch {
		r.methodNotAllowed(w)
		return
	}

	var payload struct {
		StartTime *time.Time `json:"startTime"`
		EndTime   *time.Time `json:"endTime"`
		Key       string     `json:"key"`
	}
	if req.Body != nil {
		// Body is optional on start/end; timestamps default to now.
		_ = json.NewDecoder(req.Body).Decode(&payload)
	}

	var (
		session *domain.Session
		err     error
	)
	switch parts[1] {
	case "start":
		session, err = r.sessions.Start(req.Context(), sessionID, payload.StartTime)
	case "end":
		session, err = r.sessions.End(req.Context(), sessionID, payload.EndTime)
	case "recording":
		session, err = r.sessions.SetRecording(req.Context(), sessionID, payload.Key)
	default:
		r.notFound(w)
		return
	}
	if err != nil {
		r.serviceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": session})
}

func (r *Router) handleLogsIngest(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		SessionID string                   `json:"sessionId"`
		Events    []eventsvc.IncomingEvent `json:"events"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := r.events.SaveBatch(req.Context(), payload.SessionID, payload.Events)
	if err != nil {
		r.serviceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":       true,
		"insertedCount": result.InsertedCount,
		"insertedIds":   result.InsertedIDs,
	})
}

func (r *Router) handleLogsQuery(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	sessionID := strings.TrimPrefix(req.URL.Path, "/logs/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		r.notFound(w)
		return
	}

	query := req.URL.Query()
	filter := domain.EventFilter{
		Type:        domain.EventType(strings.TrimSpace(query.Get("type"))),
		CandidateID: strings.TrimSpace(query.Get("candidateId")),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	var err error
	if filter.From, err = parseTimeParam(query.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from timestamp")
		return
	}
	if filter.To, err = parseTimeParam(query.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to timestamp")
		return
	}

	if aggregate, _ := strconv.ParseBool(query.Get("aggregate")); aggregate {
		counts, err := r.events.Aggregate(req.Context(), sessionID, filter)
		if err != nil {
			r.serviceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "counts": counts})
		return
	}

	rows, err := r.events.List(req.Context(), sessionID, filter)
	if err != nil {
		r.serviceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(rows), "data": rows})
}

func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	sessionID := strings.TrimPrefix(req.URL.Path, "/reports/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		r.notFound(w)
		return
	}
	rpt, err := r.reports.Build(req.Context(), sessionID)
	if err != nil {
		r.serviceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rpt})
}

func (r *Router) handleSignalingWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	connID := uuid.NewString()
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(connID, client)
	r.logger.Info("signaling socket connected", "conn_id", connID)

	go func() {
		defer func() {
			// Implicit leave: transport drop gets the same cleanup as an
			// explicit leave message.
			r.deliver(r.signaling.HandleDisconnect(connID))
			r.hub.Unregister(connID)
			client.Close()
			r.logger.Info("signaling socket disconnected", "conn_id", connID)
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			r.deliver(r.signaling.HandleMessage(connID, raw))
		}
	}()
}

func (r *Router) deliver(outbounds []signaling.Outbound) {
	for _, out := range outbounds {
		data, err := json.Marshal(out.Payload)
		if err != nil {
			r.logger.Warn("failed to marshal signaling payload", "error", err)
			continue
		}
		r.hub.Send(out.To, data)
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{"status": "down", "error": err.Error()}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// serviceError maps the error taxonomy onto HTTP statuses. Unexpected
// failures are logged with context and returned as a generic 500.
func (r *Router) serviceError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		r.logger.Error("handler failure", "method", req.Method, "path", req.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseTimeParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps the websocket upgrade working through the audit wrapper.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
