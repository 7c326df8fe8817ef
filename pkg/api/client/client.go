// Package client is a typed Go client for the housechat HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is used when no base URL is supplied.
const DefaultBaseURL = "http://localhost:4000"

// Client provides typed access to the housechat API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(env.Message)
}

// User reflects API user payloads.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the public face of a user.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair includes access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Account is returned by signup and login.
type Account struct {
	User    User      `json:"user"`
	Profile Profile   `json:"profile"`
	Tokens  TokenPair `json:"tokens"`
}

// Message is a direct message as seen by the caller.
type Message struct {
	ID                 string    `json:"id"`
	SenderID           string    `json:"sender_id"`
	ReceiverID         string    `json:"receiver_id"`
	Body               string    `json:"body"`
	DeletedForSender   bool      `json:"deleted_for_sender"`
	DeletedForReceiver bool      `json:"deleted_for_receiver"`
	CreatedAt          time.Time `json:"created_at"`
}

// SignupInput captures the payload for registration.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Signup registers an account and returns its first token pair.
func (c *Client) Signup(ctx context.Context, input SignupInput) (Account, error) {
	var acct Account
	if err := c.do(ctx, http.MethodPost, "/auth/signup", input, "", &acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (Account, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var acct Account
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Refresh trades a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var resp struct {
		Tokens TokenPair `json:"tokens"`
	}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, "", &resp); err != nil {
		return TokenPair{}, err
	}
	return resp.Tokens, nil
}

// Contacts lists the profiles the caller may message.
func (c *Client) Contacts(ctx context.Context, token string) ([]Profile, error) {
	var profiles []Profile
	if err := c.do(ctx, http.MethodGet, "/contacts", nil, token, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Send posts a message to receiverID.
func (c *Client) Send(ctx context.Context, token, receiverID, body string) (Message, error) {
	payload := map[string]string{"receiver_id": receiverID, "body": body}
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/messages", payload, token, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Conversation returns the caller's visible messages with otherUserID.
func (c *Client) Conversation(ctx context.Context, token, otherUserID string) ([]Message, error) {
	path := fmt.Sprintf("/conversations/%s", url.PathEscape(otherUserID))
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, path, nil, token, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// History returns every message userID can still see. userID must be the caller.
func (c *Client) History(ctx context.Context, token, userID string) ([]Message, error) {
	path := fmt.Sprintf("/users/%s/messages", url.PathEscape(userID))
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, path, nil, token, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteMessage hides a message for the caller, or unsends it when forEveryone is set.
func (c *Client) DeleteMessage(ctx context.Context, token, messageID string, forEveryone bool) error {
	path := fmt.Sprintf("/messages/%s", url.PathEscape(messageID))
	if forEveryone {
		path += "?for_everyone=true"
	}
	return c.do(ctx, http.MethodDelete, path, nil, token, nil)
}
