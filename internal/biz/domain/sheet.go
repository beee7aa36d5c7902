package domain

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Header aliases used when reading the sheet back
var (
	TimestampAliases = []string{"timestamp", "time", "日時"}
	TitleAliases     = []string{"title", "商品名"}
	ASINAliases      = []string{"asin"}
	PriceAliases     = []string{"amazon_price", "price"}
	StoreAliases     = []string{"store_chain", "store", "店舗"}
	BranchAliases    = []string{"store_branch", "branch", "支店"}
	UserAliases      = []string{"user", "ユーザー"}
)

// NormalizeHeader folds full-width characters, trims and lower-cases a header cell
func NormalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

// ResolveColumn returns the index of the first header matching any alias,
// or -1 when none does. Aliases are tried in order.
func ResolveColumn(header []string, aliases ...string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}
	for _, alias := range aliases {
		want := NormalizeHeader(alias)
		for i, h := range normalized {
			if h == want {
				return i
			}
		}
	}
	return -1
}

// RecordsFromGrid converts a sheet grid (first row = header) into records.
// Missing columns and short rows yield empty fields.
func RecordsFromGrid(grid [][]string) []ProductRecord {
	if len(grid) < 2 {
		return nil
	}
	header := grid[0]
	idx := struct {
		id, asin, jan, title, price, chain, branch, buy, user, channel, ts int
	}{
		id:      ResolveColumn(header, "id"),
		asin:    ResolveColumn(header, ASINAliases...),
		jan:     ResolveColumn(header, "jan"),
		title:   ResolveColumn(header, TitleAliases...),
		price:   ResolveColumn(header, PriceAliases...),
		chain:   ResolveColumn(header, StoreAliases...),
		branch:  ResolveColumn(header, BranchAliases...),
		buy:     ResolveColumn(header, "buy_price"),
		user:    ResolveColumn(header, UserAliases...),
		channel: ResolveColumn(header, "channel"),
		ts:      ResolveColumn(header, TimestampAliases...),
	}

	records := make([]ProductRecord, 0, len(grid)-1)
	for _, row := range grid[1:] {
		if isBlankRow(row) {
			continue
		}
		records = append(records, ProductRecord{
			ID:             cell(row, idx.id),
			ASIN:           cell(row, idx.asin),
			JAN:            cell(row, idx.jan),
			Title:          cell(row, idx.title),
			ReferencePrice: intOf(cell(row, idx.price)),
			StoreChain:     cell(row, idx.chain),
			StoreBranch:    cell(row, idx.branch),
			BuyPrice:       intOf(cell(row, idx.buy)),
			User:           cell(row, idx.user),
			Channel:        cell(row, idx.channel),
			RawTimestamp:   cell(row, idx.ts),
		})
	}
	return records
}

// RecordsOnDay filters records whose raw timestamp contains the given day
// ("2006-01-02").
func RecordsOnDay(records []ProductRecord, day string) []ProductRecord {
	var out []ProductRecord
	for _, r := range records {
		if strings.Contains(r.RawTimestamp, day) {
			out = append(out, r)
		}
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intOf(s string) int {
	s = strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "").Replace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
