package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/housechat/internal/repository/memory"
	"github.com/splax/housechat/internal/service/auth"
	"github.com/splax/housechat/internal/service/contacts"
	"github.com/splax/housechat/internal/service/messages"
	"github.com/splax/housechat/pkg/config"
	"github.com/splax/housechat/pkg/logger"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *Router
}

func newTestServer(t *testing.T, limiter RateLimiter, metrics bool, dbHealth func(context.Context) error) *testServer {
	t.Helper()
	store := memory.New()
	log := logger.Discard()
	cfg := config.APIConfig{JWTSecret: "router-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
	r := NewRouter(log,
		auth.New(store, store, log, cfg),
		contacts.New(store, log),
		messages.New(store, store, log),
		limiter, dbHealth, metrics)
	t.Cleanup(r.Close)
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, token string, body any) (int, response) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

type session struct {
	userID string
	token  string
}

func (s *testServer) signup(email, name, role string) session {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "password1", "name": name, "role": role,
	})
	require.Equal(s.t, http.StatusCreated, code, resp.Message)
	var acct accountJSON
	require.NoError(s.t, json.Unmarshal(resp.Data, &acct))
	return session{userID: acct.User.ID, token: acct.Tokens.AccessToken}
}

func (s *testServer) send(from session, to, body string) (int, response) {
	return s.do(http.MethodPost, "/messages", from.token, map[string]string{"receiver_id": to, "body": body})
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestScenarioOwnerHousekeeperMessaging(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	a := s.signup("a@house.test", "Alice", "owner")
	b := s.signup("b@house.test", "Bruno", "housekeeper")
	c := s.signup("c@house.test", "Carla", "owner")

	code, resp := s.send(b, a.userID, "hi")
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.True(t, resp.Success)
	sent := decode[messageJSON](t, resp.Data)
	assert.Equal(t, "hi", sent.Body)
	assert.Equal(t, b.userID, sent.SenderID)

	code, resp = s.send(a, b.userID, "hello")
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, resp = s.do(http.MethodGet, "/contacts", a.token, nil)
	require.Equal(t, http.StatusOK, code)
	contactsOfA := decode[[]profileJSON](t, resp.Data)
	var names []string
	for _, p := range contactsOfA {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Carla", "Bruno"}, names)

	code, resp = s.send(c, b.userID, "are you free?")
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)

	code, resp = s.do(http.MethodGet, "/conversations/"+b.userID, a.token, nil)
	require.Equal(t, http.StatusOK, code)
	conv := decode[[]messageJSON](t, resp.Data)
	require.Len(t, conv, 2)
	assert.Equal(t, "hi", conv[0].Body)
	assert.Equal(t, "hello", conv[1].Body)
}

func TestSignupAndLoginErrors(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	s.signup("a@house.test", "Alice", "owner")

	code, resp := s.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "A@house.test", "password": "password1", "name": "Again", "role": "owner",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)

	code, _ = s.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "x@house.test", "password": "password1", "name": "X", "role": "butler",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@house.test", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid credentials", resp.Message)

	code, resp = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@house.test", "password": "password1"})
	require.Equal(t, http.StatusOK, code)
	acct := decode[accountJSON](t, resp.Data)
	assert.Equal(t, "owner", acct.Profile.Role)
	assert.Equal(t, int64(60), acct.Tokens.ExpiresIn)

	code, resp = s.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": acct.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, code, resp.Message)
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"invalid JSON body"}`, rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	for _, token := range []string{"", "garbage"} {
		code, resp := s.do(http.MethodGet, "/contacts", token, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.False(t, resp.Success)
	}
}

func TestDeleteFlows(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	a := s.signup("a@house.test", "Alice", "owner")
	b := s.signup("b@house.test", "Bruno", "housekeeper")
	c := s.signup("c@house.test", "Carla", "owner")

	_, resp := s.send(b, a.userID, "hi")
	hi := decode[messageJSON](t, resp.Data)
	_, resp = s.send(b, a.userID, "still there?")
	second := decode[messageJSON](t, resp.Data)

	code, _ := s.do(http.MethodDelete, "/messages/"+hi.ID+"?for_everyone=maybe", b.token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodDelete, "/messages/"+hi.ID+"?for_everyone=true", a.token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodDelete, "/messages/"+hi.ID, c.token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodDelete, "/messages/does-not-exist", a.token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	for i := 0; i < 2; i++ {
		code, resp = s.do(http.MethodDelete, "/messages/"+hi.ID, a.token, nil)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, resp.Success)
	}
	_, resp = s.do(http.MethodGet, "/conversations/"+b.userID, a.token, nil)
	assert.Len(t, decode[[]messageJSON](t, resp.Data), 1)
	_, resp = s.do(http.MethodGet, "/conversations/"+a.userID, b.token, nil)
	assert.Len(t, decode[[]messageJSON](t, resp.Data), 2)

	code, _ = s.do(http.MethodDelete, "/messages/"+second.ID+"?for_everyone=true", b.token, nil)
	require.Equal(t, http.StatusOK, code)
	_, resp = s.do(http.MethodGet, "/conversations/"+a.userID, b.token, nil)
	assert.Len(t, decode[[]messageJSON](t, resp.Data), 1)
	_, resp = s.do(http.MethodGet, "/conversations/"+b.userID, a.token, nil)
	assert.Empty(t, decode[[]messageJSON](t, resp.Data))
}

func TestUserMessagesOnlyForSelf(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	a := s.signup("a@house.test", "Alice", "owner")
	b := s.signup("b@house.test", "Bruno", "housekeeper")
	s.send(b, a.userID, "hi")

	code, _ := s.do(http.MethodGet, "/users/"+a.userID+"/messages", b.token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := s.do(http.MethodGet, "/users/"+a.userID+"/messages", a.token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]messageJSON](t, resp.Data), 1)
}

func TestSelfSendAndUnknownReceiver(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	a := s.signup("a@house.test", "Alice", "owner")

	code, _ := s.send(a, a.userID, "me")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.send(a, "00000000-0000-0000-0000-000000000000", "hello")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.send(a, "", "hello")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRoutingFallbacks(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	a := s.signup("a@house.test", "Alice", "owner")

	code, resp := s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)

	code, _ = s.do(http.MethodGet, "/auth/signup", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = s.do(http.MethodPut, "/messages", a.token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestSignupRateLimited(t *testing.T) {
	s := newTestServer(t, nil, false, nil)
	var last int
	for i := 0; i <= rateLimitSignup; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{}"))
		req.RemoteAddr = "203.0.113.9:5555"
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		last = rec.Code
		if i < rateLimitSignup {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// Login keeps its own budget for the same address.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{}"))
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil, false, func(context.Context) error { return nil })
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestServer(t, nil, false, func(context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	down.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, true, nil)
	a := s.signup("a@house.test", "Alice", "owner")
	b := s.signup("b@house.test", "Bruno", "housekeeper")
	s.send(b, a.userID, "hi")
	s.send(a, a.userID, "me")

	// A second router must reuse the registered collectors instead of panicking.
	newTestServer(t, nil, true, nil)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "housechat_api_http_requests_total")
	assert.Contains(t, body, "housechat_messages_sent_total")
	assert.Contains(t, body, `housechat_messages_send_denied_total{reason="validation"}`)
}
