// Package identity implements the auth.Provider contract against a
// GoTrue-compatible REST endpoint (password grant).
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"server/internal/auth"
	"server/internal/domain"
)

// refreshLead is how long before token expiry the client refreshes.
const refreshLead = 30 * time.Second

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client holds provider sessions per identity and pushes session changes
// (sign-in, sign-out, token refresh) to its subscribers, in delivery order.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	mu           sync.Mutex
	sessions     map[string]*providerState
	listeners    map[int]func(auth.Change)
	nextListener int
}

type providerState struct {
	accessToken  string
	refreshToken string
	refreshTimer *time.Timer
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.APIKey),
		sessions:   make(map[string]*providerState),
		listeners:  make(map[int]func(auth.Change)),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

// SignIn exchanges credentials for a provider session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	var out tokenResponse
	status, body, err := c.post(ctx, "/token?grant_type=password", credentialsRequest{Email: email, Password: password}, "", &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return nil, domain.ErrInvalidCredentials
	}
	if status >= http.StatusBadRequest {
		return nil, providerError("sign-in", status, body)
	}
	if out.User.ID == "" || out.AccessToken == "" {
		return nil, errors.New("identity: empty token response")
	}

	sess := c.installSession(&out)
	c.emit(auth.Change{IdentityID: out.User.ID})
	return sess, nil
}

// SignUp registers the address. The provider signals "already registered"
// (with confirmation disabled) by returning a user without a session; that is
// reported as (nil, nil) per the auth.Provider contract.
func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	var out tokenResponse
	status, body, err := c.post(ctx, "/signup", credentialsRequest{Email: email, Password: password}, "", &out)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, providerError("sign-up", status, body)
	}
	if out.AccessToken == "" {
		return nil, nil
	}

	sess := c.installSession(&out)
	c.emit(auth.Change{IdentityID: out.User.ID})
	return sess, nil
}

// SignOut revokes the identity's provider session and notifies subscribers.
func (c *Client) SignOut(ctx context.Context, identityID string) error {
	c.mu.Lock()
	state := c.sessions[identityID]
	delete(c.sessions, identityID)
	c.mu.Unlock()

	token := ""
	if state != nil {
		token = state.accessToken
		if state.refreshTimer != nil {
			state.refreshTimer.Stop()
		}
	}
	defer c.emit(auth.Change{IdentityID: identityID, Revoked: true})

	if token == "" {
		return nil
	}
	status, body, err := c.post(ctx, "/logout", struct{}{}, token, nil)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return providerError("sign-out", status, body)
	}
	return nil
}

// Subscribe registers fn on the session-change stream.
func (c *Client) Subscribe(fn func(auth.Change)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close stops all pending token refreshes.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, state := range c.sessions {
		if state.refreshTimer != nil {
			state.refreshTimer.Stop()
		}
	}
	c.sessions = make(map[string]*providerState)
}

func (c *Client) installSession(out *tokenResponse) *auth.ProviderSession {
	expiresAt := time.Time{}
	if out.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}

	c.mu.Lock()
	if prev := c.sessions[out.User.ID]; prev != nil && prev.refreshTimer != nil {
		prev.refreshTimer.Stop()
	}
	state := &providerState{accessToken: out.AccessToken, refreshToken: out.RefreshToken}
	c.sessions[out.User.ID] = state
	if out.ExpiresIn > 0 && out.RefreshToken != "" {
		lead := time.Duration(out.ExpiresIn)*time.Second - refreshLead
		if lead < time.Second {
			lead = time.Second
		}
		identityID := out.User.ID
		state.refreshTimer = time.AfterFunc(lead, func() { c.refresh(identityID) })
	}
	c.mu.Unlock()

	return &auth.ProviderSession{
		Identity:     auth.Identity{ID: out.User.ID, Email: out.User.Email},
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

// refresh exchanges the refresh token for a new session and pushes a change
// event. A failed refresh leaves the stored session alone; the next API call
// with the stale token will surface the revocation.
func (c *Client) refresh(identityID string) {
	c.mu.Lock()
	state := c.sessions[identityID]
	c.mu.Unlock()
	if state == nil || state.refreshToken == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var out tokenResponse
	status, _, err := c.post(ctx, "/token?grant_type=refresh_token", map[string]string{"refresh_token": state.refreshToken}, "", &out)
	if err != nil || status >= http.StatusBadRequest || out.AccessToken == "" {
		return
	}
	out.User.ID = identityID
	c.installSession(&out)
	c.emit(auth.Change{IdentityID: identityID})
}

func (c *Client) emit(ch auth.Change) {
	c.mu.Lock()
	fns := make([]func(auth.Change), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, bearer string, out any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	raw := buf.Bytes()
	if out != nil && resp.StatusCode < http.StatusBadRequest && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, raw, err
		}
	}
	return resp.StatusCode, raw, nil
}

func providerError(op string, status int, body []byte) error {
	var out errorResponse
	_ = json.Unmarshal(body, &out)
	msg := out.ErrorDescription
	if msg == "" {
		msg = out.Msg
	}
	if msg == "" {
		msg = out.Error
	}
	if msg != "" {
		return fmt.Errorf("identity: %s: %s", op, msg)
	}
	return fmt.Errorf("identity: %s: http %d", op, status)
}
