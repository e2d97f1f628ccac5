package momo

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// fallbackTokenLifetime is used when the provider omits expires_in. Kept
// deliberately short so a bad guess costs an extra exchange, not a 401.
const fallbackTokenLifetime = 300 * time.Second

// TokenSource caches one provider access token with its absolute expiry.
// Each product (collection, disbursement) owns an independent source. A
// failed exchange leaves the previous slot untouched so the next caller
// retries; there is no negative caching.
type TokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time

	tokenURL        string
	subscriptionKey string
	basicAuth       string
	http            *http.Client
	now             func() time.Time
}

func NewTokenSource(tokenURL, subscriptionKey, apiUser, apiKey string, client *http.Client) *TokenSource {
	credentials := base64.StdEncoding.EncodeToString([]byte(apiUser + ":" + apiKey))
	return &TokenSource{
		tokenURL:        tokenURL,
		subscriptionKey: subscriptionKey,
		basicAuth:       "Basic " + credentials,
		http:            client,
		now:             time.Now,
	}
}

// Token returns the cached token while it is valid, otherwise exchanges
// credentials and overwrites the slot. The whole check-exchange-store runs
// under the mutex so concurrent callers cannot trigger duplicate exchanges.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiry) {
		return t.token, nil
	}

	token, lifetime, err := t.exchange(ctx)
	if err != nil {
		return "", err
	}

	t.token = token
	t.expiry = t.now().Add(lifetime)

	return t.token, nil
}

func (t *TokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", t.subscriptionKey)
	req.Header.Set("Authorization", t.basicAuth)

	resp, err := t.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token exchange failed: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}

	lifetime := fallbackTokenLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}

	return payload.AccessToken, lifetime, nil
}
