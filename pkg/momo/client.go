// Package momo is a thin client for the MTN Mobile Money API. Two products
// are exposed, collection (request-to-pay charges) and disbursement
// (transfers), each with its own credentials and token cache.
package momo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRequestRejected is returned when the provider does not synchronously
// accept a charge or transfer request (anything other than 202).
var ErrRequestRejected = errors.New("request not accepted by provider")

const (
	StatusPending    = "PENDING"
	StatusSuccessful = "SUCCESSFUL"
	StatusFailed     = "FAILED"
)

type Credentials struct {
	PrimaryKey string `yaml:"primaryKey"`
	APIUser    string `yaml:"apiUser"`
	APIKey     string `yaml:"apiKey"`
}

type Config struct {
	BaseURL           string      `yaml:"baseUrl"`
	TargetEnvironment string      `yaml:"targetEnvironment"`
	CallbackURL       string      `yaml:"callbackUrl"`
	Currency          string      `yaml:"currency"`
	Collection        Credentials `yaml:"collection"`
	Disbursement      Credentials `yaml:"disbursement"`
}

// TransactionStatus is one status poll result. Raw keeps the provider's
// unparsed body for auditing.
type TransactionStatus struct {
	Status string
	Reason *string
	Raw    []byte
}

// Client speaks one MoMo product. The transaction path differs per product
// (requesttopay vs transfer); everything else is shared.
type Client struct {
	baseURL         string
	transactionPath string
	partyField      string
	subscriptionKey string
	targetEnv       string
	callbackURL     string
	currency        string
	tokens          *TokenSource
	http            *http.Client
}

func NewCollectionClient(cfg Config) *Client {
	return newClient(cfg, "collection/v1_0/requesttopay", "payer", "collection", cfg.Collection)
}

func NewDisbursementClient(cfg Config) *Client {
	return newClient(cfg, "disbursement/v1_0/transfer", "payee", "disbursement", cfg.Disbursement)
}

func newClient(cfg Config, transactionPath, partyField, product string, creds Credentials) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	tokenURL := fmt.Sprintf("%s/%s/token/", cfg.BaseURL, product)

	currency := cfg.Currency
	if currency == "" {
		currency = "SZL"
	}

	return &Client{
		baseURL:         cfg.BaseURL,
		transactionPath: transactionPath,
		partyField:      partyField,
		subscriptionKey: creds.PrimaryKey,
		targetEnv:       cfg.TargetEnvironment,
		callbackURL:     cfg.CallbackURL,
		currency:        currency,
		tokens:          NewTokenSource(tokenURL, creds.PrimaryKey, creds.APIUser, creds.APIKey, httpClient),
		http:            httpClient,
	}
}

func (c *Client) Currency() string {
	return c.currency
}

// RequestTransaction submits a charge (collection) or transfer
// (disbursement) under the given reference id. Only a synchronous 202 counts
// as accepted; anything else is ErrRequestRejected with the provider body
// attached.
func (c *Client) RequestTransaction(ctx context.Context, referenceID uuid.UUID, amount int, phone, partyMessage, partyNote string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"amount":     strconv.Itoa(amount),
		"currency":   c.currency,
		"externalId": referenceID.String(),
		c.partyField: map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     phone,
		},
		"payerMessage": partyMessage,
		"payeeNote":    partyNote,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, c.transactionPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Reference-Id", referenceID.String())
	req.Header.Set("X-Target-Environment", c.targetEnv)
	req.Header.Set("X-Callback-Url", c.callbackURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Wrapf(ErrRequestRejected, "status %d: %s", resp.StatusCode, respBody)
	}

	return nil
}

// TransactionStatus polls the provider for the current state of a
// previously submitted reference. Safe to call any number of times.
func (c *Client) TransactionStatus(ctx context.Context, referenceID uuid.UUID) (*TransactionStatus, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.transactionPath, referenceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("X-Target-Environment", c.targetEnv)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status poll failed: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Status string          `json:"status"`
		Reason json.RawMessage `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if payload.Status == "" {
		return nil, fmt.Errorf("status response missing status field")
	}

	return &TransactionStatus{
		Status: payload.Status,
		Reason: reasonString(payload.Reason),
		Raw:    body,
	}, nil
}

// reasonString flattens the provider's reason field, which is sometimes a
// bare string and sometimes a {code, message} object.
func reasonString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}

	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		reason := obj.Code
		if obj.Message != "" {
			reason = obj.Message
		}
		if reason != "" {
			return &reason
		}
	}

	s = string(raw)
	return &s
}
