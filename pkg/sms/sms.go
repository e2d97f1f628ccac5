// Package sms sends OTP text messages through the MTN messaging API using a
// client-credentials OAuth token.
package sms

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type Config struct {
	TokenURL      string `yaml:"tokenUrl"`
	SMSURL        string `yaml:"smsUrl"`
	ClientID      string `yaml:"clientId"`
	ClientSecret  string `yaml:"clientSecret"`
	SenderAddress string `yaml:"senderAddress"`
	ServiceCode   string `yaml:"serviceCode"`
	Keyword       string `yaml:"keyword"`
}

// Sender is a Client abstraction point for tests.
type Sender interface {
	SendOTP(ctx context.Context, phone, otp string) error
}

type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) SendOTP(ctx context.Context, phone, otp string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"senderAddress":          c.cfg.SenderAddress,
		"receiverAddress":        []string{phone},
		"message":                fmt.Sprintf("Your OTP is %s. It expires in 5 minutes.", otp),
		"clientCorrelator":       strconv.FormatInt(time.Now().UnixMilli(), 10),
		"serviceCode":            c.cfg.ServiceCode,
		"keyword":                c.cfg.Keyword,
		"requestDeliveryReceipt": false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SMSURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms send failed: status %d: %s", resp.StatusCode, respBody)
	}

	return nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sms token exchange failed: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode sms token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("sms token response missing access_token")
	}

	lifetime := 300 * time.Second
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}

	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(lifetime)

	return c.token, nil
}
