package extract

import (
	"regexp"
	"sort"
	"strings"
)

// ChannelMap maps category -> channel-name synonym -> canonical chain
type ChannelMap map[string]map[string]string

type chainSynonyms struct {
	chain    string
	synonyms []string
}

// storeSynonyms is checked in order; the first chain with a hit wins
var storeSynonyms = []chainSynonyms{
	{"ヤマダデンキ", []string{"ヤマダ", "YAMADA", "テックランド", "LABI", "ヤマダ電機"}},
	{"ビックカメラ・コジマ", []string{"ビック", "コジマ", "ビックカメラ", "ビック・コジマ"}},
	{"ヨドバシカメラ", []string{"ヨドバシ"}},
	{"ケーズデンキ", []string{"ケーズ", "K's"}},
	{"ドン・キホーテ", []string{"ドンキ", "ドン・キホーテ", "MEGAドンキ"}},
	{"ココカラファイン", []string{"ココカラ", "ココカラファイン"}},
	{"マツモトキヨシ", []string{"マツキヨ"}},
	{"スギ薬局", []string{"スギ"}},
	{"クリエイトSD", []string{"クリエイト"}},
	{"クスリのアオキ", []string{"アオキ"}},
	{"サンドラッグ", []string{"サンドラッグ", "サンドラ"}},
}

const branchChars = `[^\s\x{3000}、。!！?？]{1,16}`

var branchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(` + branchChars + `店)`),
	regexp.MustCompile(`(テック` + branchChars + `)`),
	regexp.MustCompile(`(` + branchChars + `センター)`),
}

// Chains lists the canonical chain names known to the comment matcher
func Chains() []string {
	out := make([]string, len(storeSynonyms))
	for i, c := range storeSynonyms {
		out[i] = c.chain
	}
	return out
}

// StoreFromComment finds a chain and a branch fragment in free text.
// Either may be empty.
func StoreFromComment(text string) (chain, branch string) {
	if text == "" {
		return "", ""
	}
	lower := strings.ToLower(text)
	for _, c := range storeSynonyms {
		if containsAny(lower, c.synonyms) {
			chain = c.chain
			break
		}
	}
	for _, re := range branchPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			branch = m[1]
			break
		}
	}
	return chain, branch
}

func containsAny(lower string, synonyms []string) bool {
	for _, s := range synonyms {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// StoreFromChannel returns the chain a channel name maps to, or "".
// Categories are visited in name order so overlapping synonyms resolve
// the same way on every call.
func StoreFromChannel(name string, channels ChannelMap) string {
	if name == "" || len(channels) == 0 {
		return ""
	}
	categories := make([]string, 0, len(channels))
	for c := range channels {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, c := range categories {
		synonyms := channels[c]
		keys := make([]string, 0, len(synonyms))
		for k := range synonyms {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.EqualFold(k, name) {
				return synonyms[k]
			}
		}
	}
	return ""
}
