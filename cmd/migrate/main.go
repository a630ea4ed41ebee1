package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ledgerpay/internal/config"
	"ledgerpay/internal/db"
)

const downMarker = "-- +migrate Down"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dir := flag.String("dir", "migrations", "directory holding *.sql migration files")
	down := flag.Bool("down", false, "roll back the most recently applied migration")
	flag.Parse()

	cfg := config.Load()
	database, err := db.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect database", err)
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		fatal("failed to ensure schema_migrations", err)
	}

	if *down {
		if err := rollback(database, *dir); err != nil {
			fatal("rollback failed", err)
		}
		return
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		fatal("failed to read migrations", err)
	}
	sort.Strings(files)

	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			fatal("failed to read migration state", err)
		}
		if exists {
			continue
		}
		if err := applyFile(database, file, false); err != nil {
			fatal("failed to apply migration", err, "file", filename)
		}
		if _, err := database.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			fatal("failed to record migration", err, "file", filename)
		}
		slog.Info("applied migration", "file", filename)
	}
}

type migrationDB interface {
	execer
	Get(dest any, query string, args ...any) error
}

func rollback(database migrationDB, dir string) error {
	var filename string
	err := database.Get(&filename, `SELECT filename FROM schema_migrations ORDER BY filename DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		slog.Info("nothing to roll back")
		return nil
	}
	if err != nil {
		return err
	}
	if err := applyFile(database, filepath.Join(dir, filename), true); err != nil {
		return fmt.Errorf("roll back %s: %w", filename, err)
	}
	if _, err := database.Exec(`DELETE FROM schema_migrations WHERE filename = $1`, filename); err != nil {
		return err
	}
	slog.Info("rolled back migration", "file", filename)
	return nil
}

func fatal(msg string, err error, args ...any) {
	slog.Error(msg, append(args, "error", err)...)
	os.Exit(1)
}

func applyFile(db execer, path string, down bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(section(string(content), down)) {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// section returns the Up part of a migration file, or the Down part when
// down is set. Files without a Down marker have an empty Down part.
func section(content string, down bool) string {
	up, rest, found := strings.Cut(content, downMarker)
	if down {
		if !found {
			return ""
		}
		return rest
	}
	return up
}

// splitSQL breaks a script into statements on lines ending a statement.
// Comment lines are dropped.
func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
