package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fxledger/internal/core"
	"fxledger/internal/log"

	"github.com/shopspring/decimal"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const selectColumns = "id, owner_id, %s, currency, category, description, created_at"

// SQLRepository is the TransactionStore over database/sql.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	cols    string
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(SQLite, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(SQLite.driver, dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return newRepository(db, SQLite)
}

func NewPostgresRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	if err := RunMigrations(Postgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(Postgres.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return newRepository(db, Postgres)
}

func newRepository(db *sql.DB, d Dialect) (*SQLRepository, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLRepository{
		db:      db,
		dialect: d,
		cols:    fmt.Sprintf(selectColumns, d.amountCol),
		logger:  log.Component(log.ComponentStorage),
	}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Dialect() Dialect { return r.dialect }

func (r *SQLRepository) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	p := r.dialect.placeholder
	query := fmt.Sprintf(
		`INSERT INTO transactions (owner_id, amount, currency, category, description, created_at)
		 VALUES (%s, %s%s, %s, %s, %s, %s)
		 RETURNING %s`,
		p(1), p(2), r.dialect.amountCast, p(3), p(4), p(5), p(6), r.cols)

	created, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		t.OwnerID,
		core.FormatAmount(t.Amount),
		t.Currency,
		t.Category,
		t.Description,
		r.dialect.timeArg(t.CreatedAt),
	))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	r.logger.DebugContext(ctx, "Transaction saved",
		log.FieldOwnerID, created.OwnerID,
		log.FieldTransactionID, created.ID,
		"dialect", r.dialect.name)

	return created, nil
}

func (r *SQLRepository) Get(ctx context.Context, ownerID string, id int64) (core.Transaction, error) {
	p := r.dialect.placeholder
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = %s AND owner_id = %s`, r.cols, p(1), p(2))

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// List filters in the WHERE clause so rows of other owners are never read.
func (r *SQLRepository) List(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, r.dialect.placeholder(len(args))))
	}

	add("owner_id = %s", ownerID)
	if f.Category != "" {
		add("category = %s", f.Category)
	}
	if f.Currency != "" {
		add("currency = %s", f.Currency)
	}
	if f.HasDateRange() {
		add("created_at >= %s", r.dialect.timeArg(f.Start))
		add("created_at <= %s", r.dialect.timeArg(f.End))
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, id DESC`,
		r.cols, strings.Join(conds, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
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

// Update is a single statement conditioned on both id and owner.
func (r *SQLRepository) Update(ctx context.Context, ownerID string, id int64, ch core.TransactionChanges) (core.Transaction, error) {
	p := r.dialect.placeholder
	query := fmt.Sprintf(
		`UPDATE transactions
		 SET amount = %s%s, currency = %s, category = %s, description = COALESCE(%s%s, description)
		 WHERE id = %s AND owner_id = %s
		 RETURNING %s`,
		p(1), r.dialect.amountCast, p(2), p(3), p(4), r.dialect.textCast, p(5), p(6), r.cols)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		core.FormatAmount(ch.Amount),
		ch.Currency,
		ch.Category,
		nullableText(ch.Description),
		id,
		ownerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	return t, nil
}

// Delete is a single statement conditioned on both id and owner.
func (r *SQLRepository) Delete(ctx context.Context, ownerID string, id int64) error {
	p := r.dialect.placeholder
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM transactions WHERE id = %s AND owner_id = %s`, p(1), p(2)),
		id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t       core.Transaction
		amount  string
		created dbTime
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &amount, &t.Currency, &t.Category, &t.Description, &created); err != nil {
		return core.Transaction{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored amount %q: %w", amount, err)
	}
	t.Amount = d
	t.CreatedAt = created.Time
	return t, nil
}
