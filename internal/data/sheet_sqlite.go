package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// sqliteSheetRepo implements the sheet repository as a local SQLite table
// whose columns follow domain.ProductHeader
type sqliteSheetRepo struct {
	db *sql.DB
}

// NewSQLiteSheetRepo creates a new SQLite sheet repository
func NewSQLiteSheetRepo(dbPath string) (repo.SheetRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(productsTableDDL("INTEGER PRIMARY KEY AUTOINCREMENT")); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_products_timestamp ON products(timestamp)`)

	return &sqliteSheetRepo{db: db}, nil
}

// productsTableDDL builds the products table with one TEXT column per header
func productsTableDDL(seqType string) string {
	cols := make([]string, 0, len(domain.ProductHeader)+1)
	cols = append(cols, "seq "+seqType)
	for _, h := range domain.ProductHeader {
		cols = append(cols, h+" TEXT NOT NULL DEFAULT ''")
	}
	return "CREATE TABLE IF NOT EXISTS products (\n\t" + strings.Join(cols, ",\n\t") + "\n)"
}

// fitRow pads or cuts row to the header width
func fitRow(row []string) []any {
	out := make([]any, len(domain.ProductHeader))
	for i := range out {
		if i < len(row) {
			out[i] = row[i]
		} else {
			out[i] = ""
		}
	}
	return out
}

// AppendRow appends a row
func (r *sqliteSheetRepo) AppendRow(ctx context.Context, row []string) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(domain.ProductHeader)), ", ")
	query := fmt.Sprintf(`INSERT INTO products (%s) VALUES (%s)`,
		strings.Join(domain.ProductHeader, ", "), placeholders)

	if _, err := r.db.ExecContext(ctx, query, fitRow(row)...); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// ReadAll returns the header followed by every row in insertion order
func (r *sqliteSheetRepo) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM products ORDER BY seq`,
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

// Close closes the database connection
func (r *sqliteSheetRepo) Close() error {
	return r.db.Close()
}
