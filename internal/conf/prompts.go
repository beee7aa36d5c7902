package conf

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

// PromptsConfig is the on-disk persona file
type PromptsConfig struct {
	ChatSystemPrompt   string `yaml:"chat_system_prompt"`
	ReportSystemPrompt string `yaml:"report_system_prompt"`
	OwnerLabel         string `yaml:"owner_label"`
	MemberLabel        string `yaml:"member_label"`
	ReplyTemplate      string `yaml:"reply_template"`
	FallbackReply      string `yaml:"fallback_reply"`
	DigestPrompt       string `yaml:"digest_prompt"`
	DigestFallback     string `yaml:"digest_fallback"`
	MapTemplate        string `yaml:"map_template"`
	ReduceTemplate     string `yaml:"reduce_template"`
	MemoryHeader       string `yaml:"memory_header"`
}

// LoadPersona reads the persona file (defaults when path is empty or
// missing) and appends the salon memory file when it exists.
func LoadPersona(path, memoryPath, botName string) (domain.Persona, error) {
	cfg := DefaultPromptsConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var fromFile PromptsConfig
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				return domain.Persona{}, fmt.Errorf("parse %s: %w", path, err)
			}
			fromFile.fillDefaults(cfg)
			cfg = &fromFile
		case os.IsNotExist(err):
		default:
			return domain.Persona{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	memory := loadMemory(memoryPath)
	attach := func(prompt string) string {
		if memory == "" {
			return prompt
		}
		return prompt + "\n\n" + cfg.MemoryHeader + "\n" + memory
	}

	if botName == "" {
		botName = "ナギサ"
	}
	return domain.Persona{
		Name:               botName,
		ChatSystemPrompt:   attach(cfg.ChatSystemPrompt),
		ReportSystemPrompt: attach(cfg.ReportSystemPrompt),
		OwnerLabel:         cfg.OwnerLabel,
		MemberLabel:        cfg.MemberLabel,
		ReplyTemplate:      cfg.ReplyTemplate,
		FallbackReply:      cfg.FallbackReply,
		DigestPrompt:       cfg.DigestPrompt,
		DigestFallback:     cfg.DigestFallback,
		MapTemplate:        cfg.MapTemplate,
		ReduceTemplate:     cfg.ReduceTemplate,
	}, nil
}

// DefaultPersona returns the built-in persona without salon memory
func DefaultPersona() domain.Persona {
	p, _ := LoadPersona("", "", "")
	return p
}

func loadMemory(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults(d *PromptsConfig) {
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&c.ChatSystemPrompt, d.ChatSystemPrompt)
	fill(&c.ReportSystemPrompt, d.ReportSystemPrompt)
	fill(&c.OwnerLabel, d.OwnerLabel)
	fill(&c.MemberLabel, d.MemberLabel)
	fill(&c.ReplyTemplate, d.ReplyTemplate)
	fill(&c.FallbackReply, d.FallbackReply)
	fill(&c.DigestPrompt, d.DigestPrompt)
	fill(&c.DigestFallback, d.DigestFallback)
	fill(&c.MapTemplate, d.MapTemplate)
	fill(&c.ReduceTemplate, d.ReduceTemplate)
	fill(&c.MemoryHeader, d.MemoryHeader)
}

// DefaultPromptsConfig returns the built-in prompts
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		ChatSystemPrompt: `あなたは“ナギサBOT”。頼れる年下の女の子。
- お兄さま（owner_idsに一致するユーザー）だけを「お兄さま」と呼ぶ。
- 他のメンバーは「みなさま」と呼ぶ（男女混在OK）。
- 口調：明るい/可愛い/簡潔。絵文字は多用しすぎない（1〜2個）。
- 冗談・寄り添い・ツッコミのバランスを会話の流れで調整。
- 相手の発言は必ず拾い、引用や言い換えで返す。
- 事実は断定しすぎず、“参考”と言い添える。
- 10行以内＋必要なら箇条書きで端的に。
- NG：あおり/暴言/誤情報の断定。`,
		ReportSystemPrompt: `あなたは『ナギサ日報』の編集アシスタント。サロン全体の動きを俯瞰し、実用的に要約する。
[出力ポリシー]
- 断定や煽りは避け、検証語（〜が共有/〜との報告）を使う。価格・在庫・還元は“変動前提”で。
- 固有名詞（店舗/商品/チェーン）は保持。数字は丸めず明記。個人情報は載せない。
- 構成：「主要トピック / 会話の流れ / トレンド・気づき / ナギサのひとこと（2文以内）」。`,
		OwnerLabel:    "お兄さま",
		MemberLabel:   "みなさま",
		ReplyTemplate: "%sからのメッセージ:\n%s\n\n返答は3行以内で。必要なら箇条書き。",
		FallbackReply: "いまナギサのおしゃべり頭脳に接続が集中してるみたい…💦 抽出や記録は動いてるから、もう少ししたらまた呼んでねっ。",
		DigestPrompt: "昨日の商材トップ（抜粋）です。全体の雰囲気が伝わる一言コメントを、" +
			"可愛く・励まし系で2行以内で。最後にハートか星を1個だけ付けてください。\n\n",
		DigestFallback: "きのうもたくさんの投稿、ありがとうございます✨",
		MapTemplate: "以下はサロンの %s の投稿ログ（分割 %d/%d）です。\n" +
			"次の4項目で、端的に日本語で要約してください：\n" +
			"1) 主要トピック（カテゴリ・商材・店舗）\n" +
			"2) 会話の流れ・共有された知見\n" +
			"3) トレンド/仕入れに繋がる兆し\n" +
			"4) キーワード（最大10件、#ハッシュタグ形式）\n" +
			"※箇条書き中心で、具体名はそのまま残す。\n" +
			"---ログ---\n%s",
		ReduceTemplate: "以下は %s のサロン要約（部分）です。重複を統合し、1つの『ナギサ日報』として仕上げてください。\n" +
			"出力フォーマット：\n" +
			"## 主要トピック\n・\n" +
			"## 会話の流れ/注目\n・\n" +
			"## トレンド/気づき\n・\n" +
			"## ナギサのひとこと\n" +
			"2文以内。やさしく、鼓舞するトーンで。\n" +
			"――要約素材――\n%s",
		MemoryHeader: "# サロン前提",
	}
}
