// Package extract pulls product identifiers, a buy price and a store out of
// free-form sourcing posts.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

var (
	marketplaceURLRe = regexp.MustCompile(`(?i)amazon\.(?:co\.jp|com)/(?:dp|gp/product)/([A-Z0-9]{10})`)
	asinRe           = regexp.MustCompile(`(?i)\b([A-Z0-9]{10})\b`)
	janRe            = regexp.MustCompile(`\b(\d{13})\b`)

	quantityRe = regexp.MustCompile(`\d+\s*(?:個|台|%|％)`)
	priceRe    = regexp.MustCompile(`(?:[¥￥]\s*)?([1-9]\d{0,2}(?:,\d{3})+|[1-9]\d{2,5})(?:\s*円)?`)
	// 10-alnum tokens holding a digit and 13-digit codes are identifiers, not prices
	idTokenRe = regexp.MustCompile(`(?i)\b(?:[A-Z]*\d[A-Z0-9]*)\b`)
)

// IDs finds the ASIN and JAN in text.
// A marketplace URL wins outright and leaves the JAN empty.
func IDs(text string) domain.Identifiers {
	if text == "" {
		return domain.Identifiers{}
	}
	if m := marketplaceURLRe.FindStringSubmatch(text); m != nil {
		return domain.Identifiers{ASIN: fixASIN(m[1])}
	}

	var ids domain.Identifiers
	if m := asinRe.FindStringSubmatch(text); m != nil {
		ids.ASIN = fixASIN(m[1])
	}
	if m := janRe.FindStringSubmatch(text); m != nil {
		ids.JAN = m[1]
	}
	return ids
}

// fixASIN uppercases and repairs the "BO" for "B0" typo
func fixASIN(s string) string {
	s = strings.ToUpper(s)
	if len(s) == 10 && strings.HasPrefix(s, "BO") {
		return "B0" + s[2:]
	}
	return s
}

// PriceCandidate returns the first plausible buy price in yen, 0 when none
func PriceCandidate(text string) int {
	if text == "" {
		return 0
	}
	cleaned := quantityRe.ReplaceAllString(text, " ")
	cleaned = idTokenRe.ReplaceAllStringFunc(cleaned, func(tok string) string {
		if len(tok) == 10 || len(tok) == 13 {
			return " "
		}
		return tok
	})

	for _, m := range priceRe.FindAllStringSubmatch(cleaned, -1) {
		v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if v >= domain.MinPriceCandidate && v <= domain.MaxPriceCandidate {
			return v
		}
	}
	return 0
}

// Extract runs every extractor over a post. A chain named in the text wins
// over the one implied by the channel name.
func Extract(text, channelName string, channels ChannelMap) domain.ExtractionResult {
	chain, branch := StoreFromComment(text)
	if chain == "" {
		chain = StoreFromChannel(channelName, channels)
	}
	return domain.ExtractionResult{
		Identifiers:    IDs(text),
		PriceCandidate: PriceCandidate(text),
		StoreChain:     chain,
		StoreBranch:    branch,
	}
}
