// Package ledger talks to an XRPL node over JSON-RPC.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/money"
)

// Engine results starting with this prefix mean the transaction was applied.
const successPrefix = "tes"

const ErrCodeAccountNotFound = "actNotFound"

// RPCError is an error reported by the node inside a 200 response.
type RPCError struct {
	Method  string
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger %s: %s: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("ledger %s: %s", e.Method, e.Code)
}

// IsAccountNotFound reports an unfunded or unknown address.
func IsAccountNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == ErrCodeAccountNotFound
}

func IsSuccess(engineResult string) bool {
	return strings.HasPrefix(engineResult, successPrefix)
}

type AccountInfo struct {
	Address  string
	Balance  decimal.Decimal
	Sequence uint32
}

type SubmitResult struct {
	EngineResult        string
	EngineResultMessage string
	Hash                string
}

// Payment is an unsigned native payment. Amounts are in XRP.
type Payment struct {
	Account     string
	Destination string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Sequence    uint32
}

// TxJSON renders the payment in the ledger's transaction JSON form, with
// amounts in drops.
func (p Payment) TxJSON() (map[string]any, error) {
	amount, err := money.ToDrops(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	fee, err := money.ToDrops(p.Fee)
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	return map[string]any{
		"TransactionType": "Payment",
		"Account":         p.Account,
		"Destination":     p.Destination,
		"Amount":          fmt.Sprintf("%d", amount),
		"Fee":             fmt.Sprintf("%d", fee),
		"Sequence":        p.Sequence,
	}, nil
}

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (c *Client) AccountInfo(ctx context.Context, address string) (AccountInfo, error) {
	var result struct {
		rpcStatus
		AccountData struct {
			Account  string `json:"Account"`
			Balance  string `json:"Balance"`
			Sequence uint32 `json:"Sequence"`
		} `json:"account_data"`
	}
	params := map[string]any{"account": address, "ledger_index": "current"}
	if err := c.call(ctx, "account_info", params, &result, &result.rpcStatus); err != nil {
		return AccountInfo{}, err
	}
	balance, err := money.ParseDrops(result.AccountData.Balance)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("account_info balance: %w", err)
	}
	return AccountInfo{
		Address:  result.AccountData.Account,
		Balance:  balance,
		Sequence: result.AccountData.Sequence,
	}, nil
}

// BaseFee returns the current base transaction cost in XRP.
func (c *Client) BaseFee(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		rpcStatus
		Drops struct {
			BaseFee string `json:"base_fee"`
		} `json:"drops"`
	}
	if err := c.call(ctx, "fee", map[string]any{}, &result, &result.rpcStatus); err != nil {
		return decimal.Zero, err
	}
	fee, err := money.ParseDrops(result.Drops.BaseFee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fee base_fee: %w", err)
	}
	return fee, nil
}

// Submit sends a signed blob. A non-success engine result is not an error;
// callers inspect SubmitResult.EngineResult.
func (c *Client) Submit(ctx context.Context, signedBlob string) (SubmitResult, error) {
	var result struct {
		rpcStatus
		EngineResult        string `json:"engine_result"`
		EngineResultMessage string `json:"engine_result_message"`
		TxJSON              struct {
			Hash string `json:"hash"`
		} `json:"tx_json"`
	}
	if err := c.call(ctx, "submit", map[string]any{"tx_blob": signedBlob}, &result, &result.rpcStatus); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		EngineResult:        result.EngineResult,
		EngineResultMessage: result.EngineResultMessage,
		Hash:                result.TxJSON.Hash,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, params any, result any, status *rpcStatus) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []any{params}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("ledger %s: read body: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ledger %s: node returned status %d", method, resp.StatusCode)
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("ledger %s: decode envelope: %w", method, err)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("ledger %s: decode result: %w", method, err)
	}
	if status.Status == "error" || status.Error != "" {
		return &RPCError{Method: method, Code: status.Error, Message: status.ErrorMessage}
	}
	return nil
}
