// Package httpx exposes the housechat services over JSON/HTTP.
package httpx

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/housechat/internal/apperr"
	"github.com/splax/housechat/internal/domain"
	"github.com/splax/housechat/internal/service/auth"
	"github.com/splax/housechat/internal/service/contacts"
	"github.com/splax/housechat/internal/service/messages"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	contacts contacts.Service
	messages messages.Service
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	messagesSent       prometheus.Counter
	messagesDeleted    *prometheus.CounterVec
	sendDenied         *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitRefresh   = 30
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies. A nil limiter falls back to
// the in-memory one.
func NewRouter(logger *slog.Logger, authSvc auth.Service, contactSvc contacts.Service, messageSvc messages.Service, limiter RateLimiter, dbHealth func(context.Context) error, metricsEnabled bool) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		contacts: contactSvc,
		messages: messageSvc,
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if metricsEnabled {
		r.initMetrics()
		r.mux.Handle("/metrics", promhttp.Handler())
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
	r.handle("/healthz", r.handleHealthz)
	r.handle("/auth/signup", r.withRateLimit("/auth/signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup))
	r.handle("/auth/login", r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin))
	r.handle("/auth/refresh", r.withRateLimit("/auth/refresh", rateLimitRefresh, rateWindowDefault, rateLimitKeyIP, r.handleRefresh))
	r.handle("/contacts", r.handlerAuthRate("/contacts", rateLimitUserRead, rateWindowDefault, r.handleContacts))
	r.handle("/conversations/{otherUserId}", r.handlerAuthRate("/conversations", rateLimitUserRead, rateWindowDefault, r.handleConversation))
	r.handle("/messages", r.handlerAuthRate("/messages:send", rateLimitUserWrite, rateWindowDefault, r.handleSend))
	r.handle("/messages/{id}", r.handlerAuthRate("/messages:delete", rateLimitUserRead, rateWindowDefault, r.handleDelete))
	r.handle("/users/{userId}/messages", r.handlerAuthRate("/users/messages", rateLimitUserRead, rateWindowDefault, r.handleUserMessages))
	r.handle("/", r.notFound)
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(pattern, h))
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	acct, err := r.auth.Signup(req.Context(), auth.SignupInput{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
		Role:     payload.Role,
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusCreated, presentAccount(acct))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	acct, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, presentAccount(acct))
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	tokens, err := r.auth.Refresh(req.Context(), payload.RefreshToken)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"tokens": presentTokens(tokens)})
}

func (r *Router) handleContacts(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	id, ok := r.identity(w, req)
	if !ok {
		return
	}
	profiles, err := r.contacts.ListVisible(req.Context(), id.UserID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, presentProfiles(profiles))
}

func (r *Router) handleConversation(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	id, ok := r.identity(w, req)
	if !ok {
		return
	}
	msgs, err := r.messages.Conversation(req.Context(), id, req.PathValue("otherUserId"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, presentMessages(msgs))
}

func (r *Router) handleSend(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	id, ok := r.identity(w, req)
	if !ok {
		return
	}
	var payload struct {
		ReceiverID string `json:"receiver_id"`
		Body       string `json:"body"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	msg, err := r.messages.Send(req.Context(), id, payload.ReceiverID, payload.Body)
	if err != nil {
		if code := apperr.CodeOf(err); code != apperr.CodeStore {
			r.recordSendDenied(strings.ToLower(string(code)))
		}
		r.fail(w, req, err)
		return
	}
	r.recordSent()
	writeData(w, http.StatusCreated, presentMessage(*msg))
}

func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	id, ok := r.identity(w, req)
	if !ok {
		return
	}
	forEveryone := false
	if raw := strings.TrimSpace(req.URL.Query().Get("for_everyone")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "for_everyone must be a boolean")
			return
		}
		forEveryone = parsed
	}
	if _, err := r.messages.Delete(req.Context(), req.PathValue("id"), id.UserID, forEveryone); err != nil {
		r.fail(w, req, err)
		return
	}
	r.recordDeleted(forEveryone)
	writeOK(w, "message deleted")
}

func (r *Router) handleUserMessages(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	id, ok := r.identity(w, req)
	if !ok {
		return
	}
	msgs, err := r.messages.AllForUser(req.Context(), id, req.PathValue("userId"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, presentMessages(msgs))
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
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"success":    status == "ok",
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// identity returns the caller verified by requireAuth.
func (r *Router) identity(w http.ResponseWriter, req *http.Request) (domain.Identity, bool) {
	id, ok := identityFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
	}
	return id, ok
}

// fail writes err as an envelope. Store failures are logged with their cause.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	if apperr.CodeOf(err) == apperr.CodeStore {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
	}
	writeAppError(w, err)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
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
		if id, ok := identityFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", id.UserID, "role", id.Role.String())
		}
		fields = append(fields, "actor", actor)

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
	ctx    context.Context
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

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
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

func (r *Router) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
