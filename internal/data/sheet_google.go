package data

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

// GoogleSheetConfig contains Google Sheets backend configuration
type GoogleSheetConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	Worksheet       string
}

// googleSheetRepo implements the sheet repository over the Sheets API
type googleSheetRepo struct {
	svc       *sheets.Service
	sheetID   string
	worksheet string
}

// NewGoogleSheetRepo opens the spreadsheet and writes the header row when
// the worksheet is empty. Extra client options are appended after the
// credentials option.
func NewGoogleSheetRepo(ctx context.Context, cfg GoogleSheetConfig, opts ...option.ClientOption) (repo.SheetRepo, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("google sheet id is required")
	}
	if cfg.Worksheet == "" {
		cfg.Worksheet = "products"
	}
	if cfg.CredentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, opts...)
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	r := &googleSheetRepo{svc: svc, sheetID: cfg.SpreadsheetID, worksheet: cfg.Worksheet}
	if err := r.ensureHeader(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *googleSheetRepo) ensureHeader(ctx context.Context) error {
	resp, err := r.svc.Spreadsheets.Values.Get(r.sheetID, r.worksheet+"!1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	_, err = r.svc.Spreadsheets.Values.Update(r.sheetID, r.worksheet+"!A1", &sheets.ValueRange{
		Values: [][]any{toCells(domain.ProductHeader)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// AppendRow appends a row below the last filled row
func (r *googleSheetRepo) AppendRow(ctx context.Context, row []string) error {
	_, err := r.svc.Spreadsheets.Values.Append(r.sheetID, r.worksheet+"!A1", &sheets.ValueRange{
		Values: [][]any{toCells(row)},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// ReadAll returns every filled row of the worksheet, header included
func (r *googleSheetRepo) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(r.sheetID, r.worksheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	grid := make([][]string, 0, len(resp.Values))
	for _, vals := range resp.Values {
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = fmt.Sprint(v)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// Close is a no-op
func (r *googleSheetRepo) Close() error {
	return nil
}

func toCells(row []string) []any {
	cells := make([]any, len(row))
	for i, c := range row {
		cells[i] = c
	}
	return cells
}
