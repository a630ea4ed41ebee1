package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/lib/pq"

	"ledgerpay/internal/models"
	"ledgerpay/internal/store"
)

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture()
	dir := newMemoryDirectory()
	dir.install(f)
	resolver := NewAccountResolver(fakeTxRunner{}, f.users, f.accounts)

	first, err := resolver.Resolve(context.Background(), senderAddress, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), senderAddress, "someone-else")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID || first.UserID != second.UserID {
		t.Fatalf("expected same account, got %+v and %+v", first, second)
	}
	if len(dir.users) != 1 {
		t.Fatalf("expected a single user, got %d", len(dir.users))
	}
}

func TestResolveConcurrentCallsConverge(t *testing.T) {
	f := newFixture()
	dir := newMemoryDirectory()
	dir.install(f)
	resolver := NewAccountResolver(fakeTxRunner{}, f.users, f.accounts)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account, err := resolver.Resolve(context.Background(), senderAddress, "")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			ids[i] = account.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected one account id, got %v", ids)
		}
	}
}

func TestResolveRetriesUniqueViolation(t *testing.T) {
	f := newFixture()
	calls := 0
	winner := models.Account{ID: "acct-winner", UserID: "user-winner", Address: senderAddress}
	f.accounts.getByAddressFn = func(ctx context.Context, q store.Getter, address string) (models.Account, error) {
		if calls == 0 {
			return models.Account{}, sql.ErrNoRows
		}
		return winner, nil
	}
	f.users.createFn = func(ctx context.Context, tx store.Execer, id, displayName string) error {
		calls++
		return &pq.Error{Code: "23505"}
	}
	resolver := NewAccountResolver(fakeTxRunner{}, f.users, f.accounts)
	account, err := resolver.Resolve(context.Background(), senderAddress, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acct-winner" {
		t.Fatalf("expected winner's account, got %+v", account)
	}
}
