// Package wallet creates and reads signing requests on the Xaman platform API.
package wallet

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

	"ledgerpay/internal/ledger"
)

type SigningStatus string

const (
	StatusPending  SigningStatus = "pending"
	StatusSigned   SigningStatus = "signed"
	StatusRejected SigningStatus = "rejected"
	StatusExpired  SigningStatus = "expired"
)

// SigningRequest is what the user opens to approve a transaction.
type SigningRequest struct {
	ID          string
	RedirectURL string
}

type SignedPayload struct {
	ID              string
	Status          SigningStatus
	SignedBlobHex   string
	TransactionHash string
}

type Config struct {
	BaseURL      string
	APIKey       string
	APISecret    string
	ReturnURL    string
	ForceNetwork string
	Timeout      time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type ReturnURLs struct {
	App string `json:"app,omitempty"`
	Web string `json:"web,omitempty"`
}

type Options struct {
	Submit       bool        `json:"submit"`
	ForceNetwork string      `json:"force_network,omitempty"`
	ReturnURL    *ReturnURLs `json:"return_url,omitempty"`
}

type Payload struct {
	TxJSON  map[string]any `json:"txjson"`
	Options Options        `json:"options"`
}

// BuildPayload renders the request body for one payment. The wallet must not
// submit: the service submits the signed blob itself after the callback.
func (c *Client) BuildPayload(payment ledger.Payment) (Payload, error) {
	txJSON, err := payment.TxJSON()
	if err != nil {
		return Payload{}, err
	}
	opts := Options{Submit: false, ForceNetwork: c.cfg.ForceNetwork}
	if c.cfg.ReturnURL != "" {
		opts.ReturnURL = &ReturnURLs{App: c.cfg.ReturnURL, Web: c.cfg.ReturnURL}
	}
	return Payload{TxJSON: txJSON, Options: opts}, nil
}

func (c *Client) CreateSigningRequest(ctx context.Context, payment ledger.Payment) (SigningRequest, error) {
	body, err := c.BuildPayload(payment)
	if err != nil {
		return SigningRequest{}, fmt.Errorf("build payload: %w", err)
	}
	var resp struct {
		UUID string `json:"uuid"`
		Next struct {
			Always string `json:"always"`
		} `json:"next"`
	}
	if err := c.do(ctx, http.MethodPost, "/payload", body, &resp); err != nil {
		return SigningRequest{}, err
	}
	if resp.UUID == "" || resp.Next.Always == "" {
		return SigningRequest{}, fmt.Errorf("wallet create payload: incomplete response")
	}
	return SigningRequest{ID: resp.UUID, RedirectURL: resp.Next.Always}, nil
}

func (c *Client) GetSigningRequest(ctx context.Context, id string) (SignedPayload, error) {
	var resp struct {
		Meta struct {
			UUID      string `json:"uuid"`
			Signed    bool   `json:"signed"`
			Resolved  bool   `json:"resolved"`
			Cancelled bool   `json:"cancelled"`
			Expired   bool   `json:"expired"`
		} `json:"meta"`
		Response struct {
			Hex  string `json:"hex"`
			TxID string `json:"txid"`
		} `json:"response"`
	}
	if err := c.do(ctx, http.MethodGet, "/payload/"+url.PathEscape(id), nil, &resp); err != nil {
		return SignedPayload{}, err
	}
	status := StatusPending
	switch {
	case resp.Meta.Signed:
		status = StatusSigned
	case resp.Meta.Expired:
		status = StatusExpired
	case resp.Meta.Resolved || resp.Meta.Cancelled:
		status = StatusRejected
	}
	return SignedPayload{
		ID:              id,
		Status:          status,
		SignedBlobHex:   resp.Response.Hex,
		TransactionHash: resp.Response.TxID,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("X-API-Secret", c.cfg.APISecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wallet %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("wallet %s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wallet %s %s: provider returned status %d", method, path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("wallet %s %s: decode: %w", method, path, err)
	}
	return nil
}
