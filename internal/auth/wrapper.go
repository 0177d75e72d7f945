// Package auth wraps the external identity service. It speaks the Identity
// Toolkit REST protocol and keeps the signed-in user's tokens on disk.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cymbal-assist/internal/config"
)

// refreshLeeway is how close to expiry a token may get before Token refreshes it.
const refreshLeeway = time.Minute

// Wrapper is the single entry point for sign-in state
type Wrapper struct {
	apiKey      string
	identityURL string
	tokenURL    string
	httpClient  *http.Client
	store       *Store
	profile     config.ProfileConfig
	logger      logrus.FieldLogger
	now         func() time.Time

	mu    sync.Mutex
	creds *Credentials
}

// NewWrapper creates a wrapper and loads any stored credentials
func NewWrapper(cfg config.AuthConfig, profile config.ProfileConfig, logger logrus.FieldLogger) (*Wrapper, error) {
	w := &Wrapper{
		apiKey:      cfg.APIKey,
		identityURL: strings.TrimRight(cfg.IdentityURL, "/"),
		tokenURL:    cfg.TokenURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:   NewStore(cfg.CredentialsPath),
		profile: profile,
		logger:  logger,
		now:     time.Now,
	}

	creds, err := w.store.Load()
	if err != nil {
		return nil, err
	}
	w.creds = creds

	return w, nil
}

// identityResponse covers the fields shared by the accounts:* endpoints
type identityResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	ProviderID   string `json:"providerId"`
}

// SignIn signs in with email and password
func (w *Wrapper) SignIn(ctx context.Context, email, password string) (User, error) {
	var resp identityResponse
	err := w.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return User{}, err
	}
	resp.ProviderID = "password"
	return w.establish(ctx, resp)
}

// SignUp creates an account and signs it in. displayName is optional.
func (w *Wrapper) SignUp(ctx context.Context, email, password, displayName string) (User, error) {
	var resp identityResponse
	err := w.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return User{}, err
	}
	resp.ProviderID = "password"

	user, err := w.establish(ctx, resp)
	if err != nil || displayName == "" {
		return user, err
	}
	return w.UpdateProfile(ctx, displayName, "")
}

// SignInWithIdP signs in with a federated provider's id token (e.g. google.com)
func (w *Wrapper) SignInWithIdP(ctx context.Context, providerID, idToken string) (User, error) {
	postBody := url.Values{}
	postBody.Set("id_token", idToken)
	postBody.Set("providerId", providerID)

	var resp identityResponse
	err := w.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return User{}, err
	}
	if resp.ProviderID == "" {
		resp.ProviderID = providerID
	}
	return w.establish(ctx, resp)
}

// SendPasswordReset asks the identity service to email a reset link
func (w *Wrapper) SendPasswordReset(ctx context.Context, email string) error {
	return w.call(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// UpdateProfile changes the display name and/or photo. Empty values are left unchanged.
func (w *Wrapper) UpdateProfile(ctx context.Context, displayName, photoURL string) (User, error) {
	token, err := w.Token(ctx)
	if err != nil {
		return User{}, err
	}

	payload := map[string]any{
		"idToken":           token,
		"returnSecureToken": true,
	}
	if displayName != "" {
		payload["displayName"] = displayName
	}
	if photoURL != "" {
		payload["photoUrl"] = photoURL
	}

	var resp identityResponse
	if err := w.call(ctx, "accounts:update", payload, &resp); err != nil {
		return User{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.creds == nil {
		return User{}, ErrNotSignedIn
	}
	if resp.DisplayName != "" {
		w.creds.DisplayName = resp.DisplayName
	}
	if resp.PhotoURL != "" {
		w.creds.PhotoURL = resp.PhotoURL
	}
	if resp.IDToken != "" {
		w.applyTokens(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	}
	if err := w.store.Save(w.creds); err != nil {
		return User{}, err
	}
	return w.userLocked(), nil
}

// SignOut forgets the stored credentials
func (w *Wrapper) SignOut() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.creds = nil
	return w.store.Clear()
}

// CurrentUser returns the signed-in user, if any
func (w *Wrapper) CurrentUser() (User, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.creds == nil {
		return User{}, false
	}
	return w.userLocked(), true
}

// UserID returns the signed-in user's id or ""
func (w *Wrapper) UserID() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.creds == nil {
		return ""
	}
	return w.creds.UID
}

// Token returns a valid id token, refreshing it when it is about to expire
func (w *Wrapper) Token(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.creds == nil {
		return "", ErrNotSignedIn
	}
	if w.now().Add(refreshLeeway).Before(w.creds.ExpiresAt) {
		return w.creds.IDToken, nil
	}

	if err := w.refreshLocked(ctx); err != nil {
		return "", err
	}
	return w.creds.IDToken, nil
}

// refreshLocked exchanges the refresh token (must be called with lock held)
func (w *Wrapper) refreshLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", w.creds.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint(w.tokenURL), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	if err := w.do(req, &resp); err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.Revoked() {
			// The refresh token is dead; the user has to sign in again.
			w.logger.WithField("code", perr.Code).Warn("token refresh rejected, signing out")
			w.creds = nil
			_ = w.store.Clear()
			return fmt.Errorf("%w: %w", ErrNotSignedIn, err)
		}
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	w.applyTokens(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	if err := w.store.Save(w.creds); err != nil {
		return err
	}

	w.logger.WithField("uid", w.creds.UID).Debug("id token refreshed")
	return nil
}

// establish stores the credentials from a sign-in response
func (w *Wrapper) establish(ctx context.Context, resp identityResponse) (User, error) {
	if resp.IDToken == "" || resp.RefreshToken == "" {
		return User{}, errors.New("identity service returned no tokens")
	}

	creds := &Credentials{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
		Provider:    resp.ProviderID,
	}

	// Password sign-in omits the photo, so look the account up
	if creds.PhotoURL == "" || creds.DisplayName == "" {
		if u, err := w.lookup(ctx, resp.IDToken); err != nil {
			w.logger.WithError(err).Debug("account lookup failed")
		} else {
			if creds.DisplayName == "" {
				creds.DisplayName = u.DisplayName
			}
			if creds.PhotoURL == "" {
				creds.PhotoURL = u.PhotoURL
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.creds = creds
	w.applyTokens(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	if err := w.store.Save(w.creds); err != nil {
		return User{}, err
	}

	w.logger.WithFields(logrus.Fields{
		"uid":      creds.UID,
		"provider": creds.Provider,
	}).Info("signed in")

	return w.userLocked(), nil
}

// lookup fetches the account profile for an id token
func (w *Wrapper) lookup(ctx context.Context, idToken string) (identityResponse, error) {
	var resp struct {
		Users []identityResponse `json:"users"`
	}
	if err := w.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return identityResponse{}, err
	}
	if len(resp.Users) == 0 {
		return identityResponse{}, errors.New("account not found")
	}
	return resp.Users[0], nil
}

// applyTokens updates tokens and expiry (must be called with lock held)
func (w *Wrapper) applyTokens(idToken, refreshToken, expiresIn string) {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	w.creds.IDToken = idToken
	if refreshToken != "" {
		w.creds.RefreshToken = refreshToken
	}
	w.creds.ExpiresAt = w.now().Add(time.Duration(seconds) * time.Second)
}

// userLocked builds the display identity (must be called with lock held).
// Name falls back to the local profile and then to the email local part.
func (w *Wrapper) userLocked() User {
	u := User{
		UID:         w.creds.UID,
		Email:       w.creds.Email,
		DisplayName: w.creds.DisplayName,
		PhotoURL:    w.creds.PhotoURL,
	}
	if u.DisplayName == "" {
		u.DisplayName = w.profile.DisplayName
	}
	if u.DisplayName == "" {
		u.DisplayName, _, _ = strings.Cut(u.Email, "@")
	}
	if u.PhotoURL == "" {
		u.PhotoURL = w.profile.PhotoURL
	}
	return u
}

// call POSTs a JSON payload to an accounts:* method
func (w *Wrapper) call(ctx context.Context, method string, payload any, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint(w.identityURL+"/"+method), bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return w.do(req, out)
}

// endpoint appends the API key to base
func (w *Wrapper) endpoint(base string) string {
	if w.apiKey == "" {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "key=" + url.QueryEscape(w.apiKey)
}

// do sends req and decodes the response or the identity service's error body
func (w *Wrapper) do(req *http.Request, out any) error {
	if w.apiKey == "" {
		return errors.New("auth.api_key is not configured")
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach identity service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check status code
	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			return newProviderError(resp.StatusCode, envelope.Error.Message)
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
