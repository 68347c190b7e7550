package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"finpilot/internal/core"
	"finpilot/internal/store"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Repository implements store.Store on database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ store.Store = (*Repository)(nil)

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(Postgres, dsn)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == SQLite {
		// one connection: sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: d, now: time.Now}, nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// isUniqueViolation recognises duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const txColumns = "id, user_id, type, amount_cents, category, bucket, note, date_ms, created_at_ms"

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	q := r.dialect.rebind("INSERT INTO transactions (" + txColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.UserID, string(t.Type), t.Amount.Cents, t.Category, string(t.Bucket), t.Note,
		toMillis(t.Date), toMillis(t.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                 core.Transaction
		typ, bucket       string
		dateMs, createdMs int64
	)
	if err := s.Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &t.Category, &bucket, &t.Note, &dateMs, &createdMs); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TxType(typ)
	t.Bucket = core.Bucket(bucket)
	t.Date = fromMillis(dateMs)
	t.CreatedAt = fromMillis(createdMs)
	return t, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	q := r.dialect.rebind("SELECT " + txColumns + " FROM transactions WHERE id = ?")
	t, err := scanTransaction(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// buildListQuery omits the date predicate entirely when no range is given.
func buildListQuery(f store.TransactionFilter) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT " + txColumns + " FROM transactions WHERE user_id = ?")
	args := []any{f.UserID}

	if f.Range != nil {
		if !f.Range.From.IsZero() {
			b.WriteString(" AND date_ms >= ?")
			args = append(args, toMillis(f.Range.From))
		}
		if !f.Range.To.IsZero() {
			b.WriteString(" AND date_ms <= ?")
			args = append(args, toMillis(f.Range.To))
		}
	}
	if f.Type != "" {
		b.WriteString(" AND type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		b.WriteString(" AND category = ?")
		args = append(args, f.Category)
	}
	if f.Bucket != "" {
		b.WriteString(" AND bucket = ?")
		args = append(args, string(f.Bucket))
	}
	b.WriteString(" ORDER BY date_ms DESC, created_at_ms DESC")
	if limit := f.EffectiveLimit(); limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return b.String(), args
}

func (r *Repository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	q, args := buildListQuery(f)
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) GetGoal(ctx context.Context, userID string, year int) (core.Goal, error) {
	q := r.dialect.rebind("SELECT user_id, year, amount_cents, title, updated_at_ms FROM goals WHERE user_id = ? AND year = ?")
	var (
		g         core.Goal
		updatedMs int64
	)
	err := r.db.QueryRowContext(ctx, q, userID, year).Scan(&g.UserID, &g.Year, &g.Amount.Cents, &g.Title, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, store.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	g.UpdatedAt = fromMillis(updatedMs)
	return g, nil
}

func (r *Repository) UpsertGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	q := r.dialect.rebind(`INSERT INTO goals (user_id, year, amount_cents, title, updated_at_ms) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, year) DO UPDATE SET amount_cents = excluded.amount_cents, title = excluded.title, updated_at_ms = excluded.updated_at_ms`)
	if _, err := r.db.ExecContext(ctx, q, g.UserID, g.Year, g.Amount.Cents, g.Title, toMillis(g.UpdatedAt)); err != nil {
		return core.Goal{}, fmt.Errorf("upsert goal: %w", err)
	}
	return g, nil
}

func (r *Repository) ListGoals(ctx context.Context, year int) ([]core.Goal, error) {
	q := r.dialect.rebind("SELECT user_id, year, amount_cents, title, updated_at_ms FROM goals WHERE year = ? ORDER BY user_id")
	rows, err := r.db.QueryContext(ctx, q, year)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		var (
			g         core.Goal
			updatedMs int64
		)
		if err := rows.Scan(&g.UserID, &g.Year, &g.Amount.Cents, &g.Title, &updatedMs); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.UpdatedAt = fromMillis(updatedMs)
		out = append(out, g)
	}
	return out, rows.Err()
}

const userColumns = "id, name, upi_id, phone, password_hash, created_at_ms"

func scanUser(s scanner) (core.User, error) {
	var (
		u         core.User
		createdMs int64
	)
	if err := s.Scan(&u.ID, &u.Name, &u.UPIID, &u.Phone, &u.PasswordHash, &createdMs); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = fromMillis(createdMs)
	return u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	q := r.dialect.rebind("INSERT INTO users (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.UPIID, u.Phone, u.PasswordHash, toMillis(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) queryUser(ctx context.Context, where string, arg any) (core.User, error) {
	q := r.dialect.rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	u, err := scanUser(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.queryUser(ctx, "id = ?", id)
}

func (r *Repository) FindUser(ctx context.Context, l store.UserLookup) (core.User, error) {
	if l.UPIID != "" {
		return r.queryUser(ctx, "upi_id = ?", l.UPIID)
	}
	if l.Phone != "" {
		return r.queryUser(ctx, "phone = ?", l.Phone)
	}
	return core.User{}, store.ErrNotFound
}

func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	q := r.dialect.rebind("UPDATE users SET password_hash = ? WHERE id = ?")
	res, err := r.db.ExecContext(ctx, q, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at_ms DESC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]core.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
