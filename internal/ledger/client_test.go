package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newNode(t *testing.T, respond func(method string, params map[string]any) any) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string           `json:"method"`
			Params []map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Params) != 1 {
			t.Fatalf("expected one params object, got %d", len(req.Params))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": respond(req.Method, req.Params[0])})
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestAccountInfo(t *testing.T) {
	client := newNode(t, func(method string, params map[string]any) any {
		if method != "account_info" || params["account"] != "rSender" || params["ledger_index"] != "current" {
			t.Fatalf("unexpected call: %s %#v", method, params)
		}
		return map[string]any{
			"status": "success",
			"account_data": map[string]any{
				"Account":  "rSender",
				"Balance":  "100000000",
				"Sequence": 42,
			},
		}
	})
	info, err := client.AccountInfo(context.Background(), "rSender")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Sequence != 42 || !info.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestAccountInfoNotFound(t *testing.T) {
	client := newNode(t, func(string, map[string]any) any {
		return map[string]any{"status": "error", "error": "actNotFound", "error_message": "Account not found."}
	})
	_, err := client.AccountInfo(context.Background(), "rMissing")
	if !IsAccountNotFound(err) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestBaseFee(t *testing.T) {
	client := newNode(t, func(method string, _ map[string]any) any {
		if method != "fee" {
			t.Fatalf("unexpected method %s", method)
		}
		return map[string]any{"status": "success", "drops": map[string]any{"base_fee": "12"}}
	})
	fee, err := client.BaseFee(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fee.Equal(decimal.RequireFromString("0.000012")) {
		t.Fatalf("unexpected fee: %s", fee)
	}
}

func TestSubmitReturnsEngineResult(t *testing.T) {
	client := newNode(t, func(method string, params map[string]any) any {
		if method != "submit" || params["tx_blob"] != "DEADBEEF" {
			t.Fatalf("unexpected call: %s %#v", method, params)
		}
		return map[string]any{
			"status":                "success",
			"engine_result":         "tecUNFUNDED_PAYMENT",
			"engine_result_message": "Insufficient XRP balance to send.",
			"tx_json":               map[string]any{"hash": "H1"},
		}
	})
	res, err := client.Submit(context.Background(), "DEADBEEF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineResult != "tecUNFUNDED_PAYMENT" || res.Hash != "H1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if IsSuccess(res.EngineResult) {
		t.Fatal("tec result must not count as success")
	}
}

func TestCallFailsOnHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second)
	if _, err := client.BaseFee(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestIsSuccess(t *testing.T) {
	if !IsSuccess("tesSUCCESS") {
		t.Fatal("tesSUCCESS must succeed")
	}
	for _, result := range []string{"", "terQUEUED", "tefPAST_SEQ", "temBAD_FEE"} {
		if IsSuccess(result) {
			t.Fatalf("%q must not succeed", result)
		}
	}
}

func TestPaymentTxJSON(t *testing.T) {
	p := Payment{
		Account:     "rSender",
		Destination: "rDest",
		Amount:      decimal.RequireFromString("10"),
		Fee:         decimal.RequireFromString("0.000012"),
		Sequence:    7,
	}
	tx, err := p.TxJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx["Amount"] != "10000000" || tx["Fee"] != "12" || tx["TransactionType"] != "Payment" || tx["Sequence"] != uint32(7) {
		t.Fatalf("unexpected tx json: %#v", tx)
	}
	p.Amount = decimal.RequireFromString("0.0000001")
	if _, err := p.TxJSON(); err == nil {
		t.Fatal("expected sub-drop amount to fail")
	}
}
