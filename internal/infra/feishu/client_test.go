package feishu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContent(t *testing.T) {
	mentions := map[string]string{"@_user_1": "ナギサ"}

	tests := []struct {
		name     string
		msgType  string
		raw      string
		text     string
		attached bool
		ok       bool
	}{
		{"text", "text", `{"text":"@_user_1 B0ABCDEFGH 5000円"}`, "@ナギサ B0ABCDEFGH 5000円", false, true},
		{"image", "image", `{"image_key":"img_1"}`, "", true, true},
		{"file", "file", `{"file_key":"f"}`, "", true, true},
		{"system", "system", `{}`, "", false, false},
		{"bad json", "text", `nope`, "", false, true},
		{
			"post with image and link", "post",
			`{"title":"","content":[[{"tag":"text","text":"ヤマダで"},{"tag":"a","text":"link","href":"https://www.amazon.co.jp/dp/B0ABCDEFGH"}],[{"tag":"img","image_key":"k"}]]}`,
			"ヤマダでlink https://www.amazon.co.jp/dp/B0ABCDEFGH", true, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, attached, ok := parseContent(tt.msgType, tt.raw, mentions)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.attached, attached)
		})
	}
}

func TestSender_IsBot(t *testing.T) {
	var nilSender *Sender
	assert.False(t, nilSender.IsBot())
	assert.True(t, (&Sender{SenderType: "app"}).IsBot())
	assert.False(t, (&Sender{SenderType: "user"}).IsBot())
}
