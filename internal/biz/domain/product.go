package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Price bounds for a buy price candidate (yen, inclusive)
const (
	MinPriceCandidate = 300
	MaxPriceCandidate = 200000
)

// TimestampLayout is the layout of the timestamp column in the sheet
const TimestampLayout = "2006-01-02 15:04:05"

// Identifiers holds product identifiers; empty means absent
type Identifiers struct {
	ASIN string
	JAN  string
}

// Any reports whether at least one identifier is present
func (ids Identifiers) Any() bool {
	return ids.ASIN != "" || ids.JAN != ""
}

// ExtractionResult is what the extraction engine finds in a text
type ExtractionResult struct {
	Identifiers
	PriceCandidate int // 0 when none was found
	StoreChain     string
	StoreBranch    string
}

// EnrichedProduct is an extraction result plus pricing data
type EnrichedProduct struct {
	ExtractionResult
	Title          string
	ReferencePrice int // 0 when the pricing service has no price
}

// ProductRecord is one appended row of the products sheet
type ProductRecord struct {
	ID             string
	ASIN           string
	JAN            string
	Title          string
	ReferencePrice int
	StoreChain     string
	StoreBranch    string
	BuyPrice       int
	User           string
	Channel        string
	Timestamp      time.Time
	RawTimestamp   string // timestamp cell as read back from the sheet
}

// ProductHeader is the column layout of the products sheet
var ProductHeader = []string{
	"id", "asin", "jan", "title", "amazon_price", "store_chain",
	"store_branch", "buy_price", "user", "channel", "timestamp",
}

// NewProductRecord builds a record from an enriched product
func NewProductRecord(p EnrichedProduct, user, channel string, at time.Time) ProductRecord {
	return ProductRecord{
		ID:             uuid.NewString(),
		ASIN:           p.ASIN,
		JAN:            p.JAN,
		Title:          p.Title,
		ReferencePrice: p.ReferencePrice,
		StoreChain:     p.StoreChain,
		StoreBranch:    p.StoreBranch,
		BuyPrice:       p.PriceCandidate,
		User:           user,
		Channel:        channel,
		Timestamp:      at,
	}
}

// Row renders the record in ProductHeader order
func (r ProductRecord) Row() []string {
	return []string{
		r.ID,
		r.ASIN,
		r.JAN,
		r.Title,
		intCell(r.ReferencePrice),
		r.StoreChain,
		r.StoreBranch,
		intCell(r.BuyPrice),
		r.User,
		r.Channel,
		r.Timestamp.Format(TimestampLayout),
	}
}

func intCell(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}
