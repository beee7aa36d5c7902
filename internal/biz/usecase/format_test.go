package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

func TestFormatYen(t *testing.T) {
	assert.Equal(t, "¥1,980", FormatYen(1980))
	assert.Equal(t, "¥300", FormatYen(300))
	assert.Equal(t, "—", priceOrDash(0))
}

func TestFormatSourcingReply(t *testing.T) {
	p := domain.EnrichedProduct{
		ExtractionResult: domain.ExtractionResult{
			Identifiers:    domain.Identifiers{ASIN: "B0ABCDEFGH"},
			PriceCandidate: 5000,
			StoreChain:     "ヤマダデンキ",
			StoreBranch:    "テック川崎",
		},
	}
	got := FormatSourcingReply("ナギサ", p)

	assert.Equal(t, strings.Join([]string{
		"🧾 ナギサが調べたよ！",
		"・ASIN：B0ABCDEFGH",
		"・Amazon参考価格：—",
		"・仕入れ値（候補）：¥5,000",
		"・店舗：ヤマダデンキ（テック川崎）",
	}, "\n"), got)
}

func TestSplitRunes(t *testing.T) {
	assert.Nil(t, SplitRunes("", 3))
	assert.Equal(t, []string{"あいう", "えお"}, SplitRunes("あいうえお", 3))
	assert.Equal(t, []string{"ab"}, SplitRunes("ab", 3))
}

func TestChunkLines(t *testing.T) {
	lines := []string{"aaaa", "bbbb", "cccc"}
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, ChunkLines(lines, 10))
	assert.Equal(t, []string{"aaaaaaaaaaaa"}, ChunkLines([]string{"aaaaaaaaaaaa"}, 5))
	assert.Nil(t, ChunkLines(nil, 10))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "あい", TruncateRunes("あいう", 2))
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
}
