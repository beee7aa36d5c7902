package repo

import "context"

// SheetRepo is the append-only product sheet
type SheetRepo interface {
	// AppendRow appends one row in domain.ProductHeader order
	AppendRow(ctx context.Context, row []string) error

	// ReadAll returns every row, header first
	ReadAll(ctx context.Context) ([][]string, error)

	Close() error
}
