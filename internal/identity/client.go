package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"esygrab/internal/models"
)

// AuthEvent describes a change in the provider-side auth state.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthStateListener receives auth-state-change notifications.
type AuthStateListener func(event AuthEvent, user *models.User)

// Token is the credential pair issued by the identity provider.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Client consumes the hosted identity provider's REST API. It is a pure
// consumer: provider failures are returned to the caller untouched, and
// retry policy belongs to the caller. The UI-facing session cache is
// maintained elsewhere (internal/session); this client only talks to the
// provider.
type Client struct {
	baseURL    string
	apiKey     string
	jwtSecret  []byte
	httpClient *http.Client

	mutex     sync.Mutex
	listeners []AuthStateListener
}

// NewClient creates an identity provider client.
func NewClient(baseURL, apiKey string, jwtSecret []byte) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		jwtSecret:  jwtSecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// OnAuthStateChange registers a listener for sign-in/sign-out events.
// Listeners run synchronously after the triggering call succeeds.
func (c *Client) OnAuthStateChange(fn AuthStateListener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Client) emit(event AuthEvent, user *models.User) {
	c.mutex.Lock()
	listeners := make([]AuthStateListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mutex.Unlock()

	for _, fn := range listeners {
		fn(event, user)
	}
}

// ProviderError is a non-2xx response from the identity provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider error (%d): %s", e.StatusCode, e.Message)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &ProviderError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %v", err)
		}
	}
	return nil
}

// signInResponse is the provider's token grant payload.
type signInResponse struct {
	Token
	User struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Phone         string `json:"phone"`
		Role          string `json:"role"`
		EmailVerified bool   `json:"email_confirmed"`
		PhoneVerified bool   `json:"phone_confirmed"`
	} `json:"user"`
}

func (c *Client) userFromResponse(resp *signInResponse) (*models.User, error) {
	// The access token's role claim is authoritative over the user blob;
	// both come from the provider but only the token is signed.
	claims, err := c.ParseAccessToken(resp.AccessToken)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:          claims.UserID,
		Email:       resp.User.Email,
		Phone:       resp.User.Phone,
		Role:        claims.Role,
		IsVerified:  resp.User.EmailVerified || resp.User.PhoneVerified,
		LastLoginAt: time.Now(),
	}
	return user, nil
}

// SignInWithPassword authenticates with an email/password credential.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Token, *models.User, error) {
	var resp signInResponse
	err := c.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, nil, err
	}

	user, err := c.userFromResponse(&resp)
	if err != nil {
		return nil, nil, err
	}

	c.emit(EventSignedIn, user)
	return &resp.Token, user, nil
}

// SendOTP asks the provider to send a one-time code to a phone number.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	return c.post(ctx, "/auth/v1/otp", map[string]string{"phone": phone}, nil)
}

// VerifyOTP exchanges a one-time code for a token.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*Token, *models.User, error) {
	var resp signInResponse
	err := c.post(ctx, "/auth/v1/verify", map[string]string{
		"type":  "sms",
		"phone": phone,
		"token": code,
	}, &resp)
	if err != nil {
		return nil, nil, err
	}

	user, err := c.userFromResponse(&resp)
	if err != nil {
		return nil, nil, err
	}

	c.emit(EventSignedIn, user)
	return &resp.Token, user, nil
}

// RefreshToken trades a refresh token for a fresh credential pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	var resp signInResponse
	err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.emit(EventTokenRefreshed, nil)
	return &resp.Token, nil
}

// SignOut revokes the provider-side session for the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &ProviderError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	c.emit(EventSignedOut, nil)
	return nil
}

// CurrentUser fetches the identity behind an access token.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var body struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Phone         string `json:"phone"`
		Role          string `json:"role"`
		EmailVerified bool   `json:"email_confirmed"`
		PhoneVerified bool   `json:"phone_confirmed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode user: %v", err)
	}

	role, err := models.ParseRole(body.Role)
	if err != nil {
		role = models.RoleUser
	}

	return &models.User{
		ID:         body.ID,
		Email:      body.Email,
		Phone:      body.Phone,
		Role:       role,
		IsVerified: body.EmailVerified || body.PhoneVerified,
	}, nil
}

// RecordActivity pushes an activity signal for the user to the provider's
// backing store. Called by the activity tracker, debounced by it.
func (c *Client) RecordActivity(ctx context.Context, userID string) error {
	return c.post(ctx, "/rest/v1/rpc/record_activity", map[string]string{
		"user_id": userID,
	}, nil)
}
