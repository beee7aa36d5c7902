package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

var yenPrinter = message.NewPrinter(language.Japanese)

// FormatYen renders a price as "¥1,980"
func FormatYen(v int) string {
	return yenPrinter.Sprintf("¥%d", v)
}

// priceOrDash renders a price, or "—" when there is none
func priceOrDash(v int) string {
	if v <= 0 {
		return "—"
	}
	return FormatYen(v)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// FormatSourcingReply renders the reply posted after a bundle is processed
func FormatSourcingReply(botName string, p domain.EnrichedProduct) string {
	lines := []string{fmt.Sprintf("🧾 %sが調べたよ！", botName)}
	if p.Title != "" {
		lines = append(lines, "・商品名："+p.Title)
	}
	if p.ASIN != "" {
		lines = append(lines, "・ASIN："+p.ASIN)
	}
	if p.JAN != "" {
		lines = append(lines, "・JAN："+p.JAN)
	}
	lines = append(lines, "・Amazon参考価格："+priceOrDash(p.ReferencePrice))
	if p.PriceCandidate > 0 {
		lines = append(lines, "・仕入れ値（候補）："+FormatYen(p.PriceCandidate))
	}
	if p.StoreChain != "" {
		store := "・店舗：" + p.StoreChain
		if p.StoreBranch != "" {
			store += "（" + p.StoreBranch + "）"
		}
		lines = append(lines, store)
	}
	return strings.Join(lines, "\n")
}

// TruncateRunes cuts s to at most n runes
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// SplitRunes splits s into consecutive parts of at most n runes
func SplitRunes(s string, n int) []string {
	if s == "" {
		return nil
	}
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return []string{s}
	}
	parts := make([]string, 0, (len(r)+n-1)/n)
	for i := 0; i < len(r); i += n {
		end := i + n
		if end > len(r) {
			end = len(r)
		}
		parts = append(parts, string(r[i:end]))
	}
	return parts
}

// ChunkLines groups lines into newline-joined chunks of at most max runes,
// counting one rune per separator. A single longer line becomes its own chunk.
func ChunkLines(lines []string, max int) []string {
	var (
		chunks []string
		buf    []string
		size   int
	)
	for _, ln := range lines {
		l := utf8.RuneCountInString(ln) + 1
		if size+l > max && len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, "\n"))
			buf = buf[:0]
			size = 0
		}
		buf = append(buf, ln)
		size += l
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, "\n"))
	}
	return chunks
}
