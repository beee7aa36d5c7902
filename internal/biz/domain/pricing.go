package domain

// Price sources in order of preference
const (
	PriceSourceAmazon = "amazon"
	PriceSourceBuyBox = "buyBox"
	PriceSourceNew    = "new"
)

var priceSourceOrder = []string{PriceSourceAmazon, PriceSourceBuyBox, PriceSourceNew}

// PriceStats is the price part of a pricing lookup response.
// Values are in base currency units; zero or negative means "no price".
type PriceStats struct {
	Current map[string]int
	// BuyBoxHistory holds time-ordered buy-box series, checked in order
	BuyBoxHistory [][]int
}

// PricingResult is a pricing lookup response
type PricingResult struct {
	Found bool
	Title string
	ASIN  string // canonical identifier echoed by the service
	Stats PriceStats
}

// ResolvePrice picks the reference price from stats, 0 when there is none
func ResolvePrice(stats PriceStats) int {
	for _, src := range priceSourceOrder {
		if v, ok := stats.Current[src]; ok && v > 0 {
			return v
		}
	}
	for _, series := range stats.BuyBoxHistory {
		if v := LastPositive(series); v > 0 {
			return v
		}
	}
	return 0
}

// LastPositive returns the last strictly positive value of a series
func LastPositive(series []int) int {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] > 0 {
			return series[i]
		}
	}
	return 0
}
