package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where create and validate look for SQL files in the repo.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns dir as a filesystem, or the migrations compiled into the
// binary when dir is empty.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Migrator applies goose migrations from one source to one postgres database.
type Migrator struct {
	provider *goose.Provider
	out      io.Writer
}

func NewMigrator(db *sql.DB, dir string, out io.Writer) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	src, err := Source(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, src)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Migrator{provider: provider, out: out}, nil
}

func (m *Migrator) Close() error {
	return m.provider.Close()
}

// Commands lists the names accepted by Exec.
func Commands() []string {
	return []string{"up", "down", "redo", "reset", "status"}
}

// Exec runs a named command and reports each migration touched to the
// migrator's writer.
func (m *Migrator) Exec(ctx context.Context, command string) error {
	switch command {
	case "up":
		results, err := m.provider.Up(ctx)
		m.report(results...)
		return wrap(command, err)
	case "down":
		res, err := m.provider.Down(ctx)
		m.report(res)
		return wrap(command, err)
	case "redo":
		res, err := m.provider.Down(ctx)
		m.report(res)
		if err != nil {
			return wrap(command, err)
		}
		res, err = m.provider.UpByOne(ctx)
		m.report(res)
		return wrap(command, err)
	case "reset":
		results, err := m.provider.DownTo(ctx, 0)
		m.report(results...)
		return wrap(command, err)
	case "status":
		return wrap(command, m.status(ctx))
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// To moves the schema up or down until it sits at version.
func (m *Migrator) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("current version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		fmt.Fprintf(m.out, "already at version %d\n", target)
		return nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	m.report(results...)
	return wrap("version "+version, err)
}

func (m *Migrator) status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		applied := "pending"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(m.out, "%-8s %-25s %s\n", st.State, applied, path.Base(st.Source.Path))
	}
	return nil
}

func (m *Migrator) report(results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fmt.Fprintf(m.out, "%-5s %s (%s)\n", r.Direction, path.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
	}
}

func wrap(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
