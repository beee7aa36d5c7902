package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

// querier is implemented by *pgxpool.Pool and pgxmock pools
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// postgresSheetRepo implements the sheet repository as a Postgres table
type postgresSheetRepo struct {
	db    querier
	close func()
}

// NewPostgresSheetRepo connects to databaseURL and ensures the products table
func NewPostgresSheetRepo(ctx context.Context, databaseURL string) (repo.SheetRepo, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	r := newPostgresSheetRepo(pool, pool.Close)
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func newPostgresSheetRepo(db querier, closeFn func()) *postgresSheetRepo {
	return &postgresSheetRepo{db: db, close: closeFn}
}

func (r *postgresSheetRepo) migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, productsTableDDL("BIGSERIAL PRIMARY KEY")); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// AppendRow appends a row
func (r *postgresSheetRepo) AppendRow(ctx context.Context, row []string) error {
	placeholders := make([]string, len(domain.ProductHeader))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO products (%s) VALUES (%s)`,
		strings.Join(domain.ProductHeader, ", "), strings.Join(placeholders, ", "))

	if _, err := r.db.Exec(ctx, query, fitRow(row)...); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// ReadAll returns the header followed by every row in insertion order
func (r *postgresSheetRepo) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM products ORDER BY seq`,
		strings.Join(domain.ProductHeader, ", ")))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer rows.Close()

	grid := [][]string{append([]string(nil), domain.ProductHeader...)}
	for rows.Next() {
		row := make([]string, len(domain.ProductHeader))
		dest := make([]any, len(row))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		grid = append(grid, row)
	}
	return grid, rows.Err()
}

// Close closes the pool
func (r *postgresSheetRepo) Close() error {
	if r.close != nil {
		r.close()
	}
	return nil
}
