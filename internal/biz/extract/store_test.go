package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreFromComment(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		chain  string
		branch string
	}{
		{"synonym and store suffix", "ビックの新宿西口店にあった", "ビックカメラ・コジマ", "ビックの新宿西口店"},
		{"romanized case-insensitive", "labi池袋で発見", "ヤマダデンキ", ""},
		{"table order wins", "ヤマダとヨドバシ両方", "ヤマダデンキ", ""},
		{"center suffix", "ドンキ 物流センター", "ドン・キホーテ", "物流センター"},
		{"apostrophe synonym", "k's 水戸店", "ケーズデンキ", "水戸店"},
		{"unknown chain still yields branch", "駅前店で購入", "", "駅前店"},
		{"nothing", "hello", "", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, branch := StoreFromComment(tt.text)
			assert.Equal(t, tt.chain, chain)
			assert.Equal(t, tt.branch, branch)
		})
	}
}

func TestStoreFromComment_BranchStopsAtPunctuation(t *testing.T) {
	_, branch := StoreFromComment("テック川崎、本日")
	assert.Equal(t, "テック川崎", branch)
}

func TestStoreFromChannel(t *testing.T) {
	channels := ChannelMap{
		"家電":   {"Yamada": "ヤマダデンキ", "bic": "ビックカメラ・コジマ"},
		"ドラッグ": {"matsukiyo": "マツモトキヨシ"},
	}

	assert.Equal(t, "ヤマダデンキ", StoreFromChannel("yamada", channels))
	assert.Equal(t, "マツモトキヨシ", StoreFromChannel("MATSUKIYO", channels))
	assert.Empty(t, StoreFromChannel("yamada-2", channels))
	assert.Empty(t, StoreFromChannel("", channels))
	assert.Empty(t, StoreFromChannel("yamada", nil))
}

func TestChains(t *testing.T) {
	chains := Chains()
	assert.Len(t, chains, 11)
	assert.Equal(t, "ヤマダデンキ", chains[0])
}
