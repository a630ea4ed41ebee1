package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/middleware"
	"ledgerpay/internal/money"
)

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	accounts, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	normalized := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		normalized = append(normalized, map[string]any{
			"id":                 account.ID,
			"address":            account.Address,
			"balance":            money.Format(account.StoredBalance),
			"calculated_balance": money.Format(account.CalculatedBalance),
			"difference":         money.Format(account.Difference),
			"created_at":         account.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

// SelfCheck compares each stored balance against the sum of its journal.
func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	type row struct {
		AccountID      string          `db:"account_id"`
		Address        string          `db:"address"`
		AccountBalance decimal.Decimal `db:"account_balance"`
		JournalSum     decimal.Decimal `db:"journal_sum"`
		Difference     decimal.Decimal `db:"difference"`
	}
	query := `
		SELECT a.id AS account_id,
		       a.address,
		       a.balance AS account_balance,
		       COALESCE(SUM(e.amount), 0) AS journal_sum,
		       (a.balance - COALESCE(SUM(e.amount), 0)) AS difference
		FROM accounts a
		LEFT JOIN balance_entries e ON e.account_id = a.id
		WHERE a.user_id = $1
		GROUP BY a.id, a.address, a.balance
		ORDER BY a.address
	`
	var rows []row
	if err := h.reconcileDB.SelectContext(r.Context(), &rows, query, userID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	response := make([]map[string]any, 0, len(rows))
	for _, item := range rows {
		response = append(response, map[string]any{
			"account_id":      item.AccountID,
			"address":         item.Address,
			"account_balance": money.Format(item.AccountBalance),
			"journal_sum":     money.Format(item.JournalSum),
			"difference":      money.Format(item.Difference),
			"consistent":      item.Difference.IsZero(),
		})
	}
	respondJSON(w, http.StatusOK, response)
}
