package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ledgerpay/internal/auth"
	"ledgerpay/internal/config"
	"ledgerpay/internal/db"
	"ledgerpay/internal/ledger"
	"ledgerpay/internal/money"
	"ledgerpay/internal/services"
	"ledgerpay/internal/store"
	"ledgerpay/internal/wallet"
	"ledgerpay/internal/websocket"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  token    -user <id>                                    mint an API token
  deposit  -address <r...> -amount <xrp> -reference <id> credit a custodial balance
  hash-secret -secret <value> [-cost <n>]                bcrypt hash for WEBHOOK_SECRET_HASH
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "token":
		err = runToken(cfg, os.Args[2:])
	case "deposit":
		err = runDeposit(cfg, logger, os.Args[2:])
	case "hash-secret":
		err = runHashSecret(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runToken(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "user id carried in the token subject")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "token lifetime")
	_ = fs.Parse(args)
	if *userID == "" {
		return fmt.Errorf("-user is required")
	}
	token, err := auth.GenerateToken(cfg.JWTSecret, *userID, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runHashSecret(args []string) error {
	fs := flag.NewFlagSet("hash-secret", flag.ExitOnError)
	secret := fs.String("secret", "", "webhook secret shared with the wallet provider")
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	_ = fs.Parse(args)
	if *secret == "" {
		return fmt.Errorf("-secret is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*secret), *cost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}

func runDeposit(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	address := fs.String("address", "", "ledger address of the account to credit")
	amount := fs.String("amount", "", "amount in XRP")
	reference := fs.String("reference", "", "external reference for the journal entry")
	name := fs.String("name", "", "display name used when the account is new")
	_ = fs.Parse(args)

	value, err := money.Parse(*amount)
	if err != nil {
		return fmt.Errorf("invalid -amount: %w", err)
	}

	database, err := db.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	entries := store.NewEntryStore(database)
	// Deposits never reach the ledger or the wallet, so the service runs
	// without a signer.
	payments := services.NewPaymentService(services.PaymentConfig{
		PlatformAddress: cfg.PlatformAddress,
		PlatformFee:     cfg.PlatformFee,
	},
		db.NewTxRunner(database),
		store.NewUserStore(database),
		store.NewAccountStore(database),
		entries,
		store.NewRecordStore(database),
		store.NewAuditStore(database),
		ledger.NewClient(cfg.XRPLRPCURL, cfg.LedgerTimeout),
		wallet.NewClient(wallet.Config{BaseURL: cfg.XamanAPIURL, Timeout: cfg.WalletTimeout}),
		nil,
		websocket.NewHub(),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	account, err := payments.Deposit(ctx, services.DepositRequest{
		Address:     *address,
		DisplayName: *name,
		Amount:      value,
		Reference:   *reference,
		Actor:       "ledgerctl",
	})
	if err != nil {
		return err
	}
	journal, err := entries.SumByAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	if !journal.Equal(account.Balance) {
		logger.Warn("stored balance differs from journal", "account_id", account.ID,
			"balance", money.Format(account.Balance), "journal", money.Format(journal))
	}
	return json.NewEncoder(os.Stdout).Encode(map[string]string{
		"accountId":      account.ID,
		"address":        account.Address,
		"balance":        money.Format(account.Balance),
		"journalBalance": money.Format(journal),
	})
}
