package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/ledger"
)

// SequenceAllocator hands out ledger sequence numbers. It holds a per-address
// lease so two sends from this process never receive the same sequence, and
// re-reads the ledger on every allocation so numbers the node has already
// consumed are never handed out again.
type SequenceAllocator struct {
	ledger LedgerGateway
	locks  *keyedMutex
}

func NewSequenceAllocator(ledger LedgerGateway) *SequenceAllocator {
	return &SequenceAllocator{ledger: ledger, locks: newKeyedMutex()}
}

// SequenceLease carries the reserved sequences and the account snapshot they
// were read from. Release must be called once the caller no longer needs the
// sequences reserved.
type SequenceLease struct {
	Address   string
	Sequences []uint32
	Balance   decimal.Decimal
	release   func()
	once      sync.Once
}

func (l *SequenceLease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if l.release != nil {
			l.release()
		}
	})
}

// Allocate reserves count consecutive sequences for address.
func (a *SequenceAllocator) Allocate(ctx context.Context, address string, count int) (*SequenceLease, error) {
	if count < 1 {
		return nil, fmt.Errorf("sequence count must be positive, got %d", count)
	}
	unlock, err := a.locks.Lock(ctx, address)
	if err != nil {
		return nil, err
	}
	info, err := observeLedger("account_info", func() (ledger.AccountInfo, error) {
		return a.ledger.AccountInfo(ctx, address)
	})
	if err != nil {
		unlock()
		if ledger.IsAccountNotFound(err) {
			return nil, ErrLedgerAccountAbsent.WithDetail(address).Wrap(err)
		}
		return nil, err
	}
	sequences := make([]uint32, count)
	for i := range sequences {
		sequences[i] = info.Sequence + uint32(i)
	}
	return &SequenceLease{
		Address:   address,
		Sequences: sequences,
		Balance:   info.Balance,
		release:   unlock,
	}, nil
}
