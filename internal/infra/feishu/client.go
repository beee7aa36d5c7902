package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog"
)

const openAPIBase = "https://open.feishu.cn/open-apis"

// Message represents a received Feishu message
type Message struct {
	ChatID        string
	MsgID         string
	MsgType       string // text, post, image, file, ...
	ChatType      string // p2p, group
	Content       string // plain text, mention placeholders resolved
	HasAttachment bool
	Sender        *Sender
	MentionsBot   bool
	CreateTime    int64 // milliseconds
}

// Sender represents the message sender
type Sender struct {
	SenderID   string
	SenderType string // user, app
	TenantKey  string
}

// IsBot reports whether the sender is an app
func (s *Sender) IsBot() bool {
	return s != nil && s.SenderType == "app"
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
}

// ChatInfo represents a chat the bot belongs to
type ChatInfo struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
}

// HistoryMessage represents a message from chat history
type HistoryMessage struct {
	MsgID         string
	MsgType       string
	Content       string
	HasAttachment bool
	CreateTime    int64 // milliseconds
	Sender        *Sender
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	log       zerolog.Logger
	cancel    context.CancelFunc
	botOpenID string
}

// NewClient creates a new Feishu client. API calls work without Start.
func NewClient(appID, appSecret string, log zerolog.Logger) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		log:       log,
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects via WebSocket and blocks until ctx is done
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	if err := c.fetchBotOpenID(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to fetch bot open_id, mentions will not be detected")
	}

	// Must return quickly so the SDK can ACK, otherwise Feishu redelivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.log.Info().Msg("starting websocket connection")
	return c.wsCli.Start(ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// fetchBotOpenID learns the bot's own open_id for mention detection
func (c *Client) fetchBotOpenID(ctx context.Context) error {
	tokenReq := fmt.Sprintf(`{"app_id":%q,"app_secret":%q}`, c.appID, c.appSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		openAPIBase+"/auth/v3/tenant_access_token/internal", strings.NewReader(tokenReq))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	tokenResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	defer tokenResp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenResult); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, openAPIBase+"/bot/v3/info", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tokenResult.TenantAccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return fmt.Errorf("API error: %s", botResult.Msg)
	}

	c.botOpenID = botResult.Bot.OpenID
	c.log.Info().Str("open_id", c.botOpenID).Str("name", botResult.Bot.AppName).Msg("bot identity loaded")
	return nil
}

// handleMessage converts a receive event and hands it to the handler
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return
	}
	rawMsg := event.Event.Message

	msg := &Message{
		ChatID:   deref(rawMsg.ChatId),
		MsgID:    deref(rawMsg.MessageId),
		MsgType:  deref(rawMsg.MessageType),
		ChatType: deref(rawMsg.ChatType),
	}
	if ts, err := strconv.ParseInt(deref(rawMsg.CreateTime), 10, 64); err == nil {
		msg.CreateTime = ts
	}

	if s := event.Event.Sender; s != nil {
		msg.Sender = &Sender{
			SenderType: deref(s.SenderType),
			TenantKey:  deref(s.TenantKey),
		}
		if s.SenderId != nil {
			msg.Sender.SenderID = deref(s.SenderId.OpenId)
		}
	}

	mentionMap := make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention == nil {
			continue
		}
		if mention.Id != nil && c.botOpenID != "" && deref(mention.Id.OpenId) == c.botOpenID {
			msg.MentionsBot = true
		}
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	content, attached, ok := parseContent(msg.MsgType, deref(rawMsg.Content), mentionMap)
	if !ok {
		c.log.Debug().Str("msg_type", msg.MsgType).Str("chat_id", msg.ChatID).Msg("unsupported message type")
		return
	}
	msg.Content = content
	msg.HasAttachment = attached

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// parseContent extracts plain text and whether the message carries a file.
// ok is false for message types that carry no user content.
func parseContent(msgType, raw string, mentionMap map[string]string) (text string, attached bool, ok bool) {
	switch msgType {
	case "text":
		var parsed struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return "", false, true
		}
		return replaceMentions(parsed.Text, mentionMap), false, true
	case "post":
		text, attached := parsePostContent(raw, mentionMap)
		return text, attached, true
	case "image", "file", "media", "sticker", "audio":
		return "", true, true
	default:
		return "", false, false
	}
}

// parsePostContent flattens a rich text message into lines
func parsePostContent(content string, mentionMap map[string]string) (string, bool) {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag      string `json:"tag"`
			Text     string `json:"text,omitempty"`
			Href     string `json:"href,omitempty"`
			ImageKey string `json:"image_key,omitempty"`
			UserID   string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", false
	}

	var (
		lines    []string
		attached bool
	)
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var parts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				parts = append(parts, elem.Text)
			case "a":
				// keep the URL, marketplace links carry the ASIN
				parts = append(parts, elem.Text+" "+elem.Href)
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					parts = append(parts, "@"+name)
				}
			case "img", "media":
				attached = true
			}
		}
		if s := strings.TrimSpace(strings.Join(parts, "")); s != "" {
			lines = append(lines, s)
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap), attached
}

// replaceMentions replaces mention placeholders (@_user_1) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// Reply replies to a message in its thread
func (c *Client) Reply(ctx context.Context, messageID, text string) error {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewReplyMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Reply(ctx, req)
	if err != nil {
		return fmt.Errorf("reply failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("reply error: %s", resp.Msg)
	}
	return nil
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})
	return c.create(ctx, chatID, larkim.MsgTypeText, string(contentJSON))
}

// SendRichText sends a rich text (post) message to a chat
func (c *Client) SendRichText(ctx context.Context, chatID, title string, content [][]map[string]any) error {
	post := map[string]any{
		"ja_jp": map[string]any{
			"title":   title,
			"content": content,
		},
	}
	contentJSON, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("encode post: %w", err)
	}
	return c.create(ctx, chatID, larkim.MsgTypePost, string(contentJSON))
}

func (c *Client) create(ctx context.Context, chatID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send %s failed: %w", msgType, err)
	}
	if !resp.Success() {
		return fmt.Errorf("send %s error: %s", msgType, resp.Msg)
	}
	c.log.Debug().Str("chat_id", chatID).Str("msg_type", msgType).Msg("message sent")
	return nil
}

// ListChats lists every chat the bot is a member of
func (c *Client) ListChats(ctx context.Context) ([]ChatInfo, error) {
	var (
		chats     []ChatInfo
		pageToken string
	)
	for {
		b := larkim.NewListChatReqBuilder().PageSize(100)
		if pageToken != "" {
			b = b.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Chat.List(ctx, b.Build())
		if err != nil {
			return nil, fmt.Errorf("list chats failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("list chats error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			chats = append(chats, ChatInfo{ChatID: deref(item.ChatId), Name: deref(item.Name)})
		}

		if resp.Data.HasMore == nil || !*resp.Data.HasMore || deref(resp.Data.PageToken) == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return chats, nil
}

// GetChatInfo retrieves the name of a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat info error: %s", resp.Msg)
	}
	return &ChatInfo{ChatID: chatID, Name: deref(resp.Data.Name)}, nil
}

// GetChatMembers retrieves members of a chat
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]ChatMember, error) {
	var (
		members   []ChatMember
		pageToken string
	)
	for {
		b := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			b = b.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, b.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			members = append(members, ChatMember{MemberID: deref(item.MemberId), Name: deref(item.Name)})
		}

		if deref(resp.Data.PageToken) == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return members, nil
}

// History lists the messages of a chat created within [start, end],
// oldest first
func (c *Client) History(ctx context.Context, chatID string, start, end time.Time) ([]HistoryMessage, error) {
	var (
		messages  []HistoryMessage
		pageToken string
	)
	for {
		b := larkim.NewListMessageReqBuilder().
			ContainerIdType("chat").
			ContainerId(chatID).
			StartTime(strconv.FormatInt(start.Unix(), 10)).
			EndTime(strconv.FormatInt(end.Unix(), 10)).
			SortType("ByCreateTimeAsc").
			PageSize(50)
		if pageToken != "" {
			b = b.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Message.List(ctx, b.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat history failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat history error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			if item == nil {
				continue
			}
			mentionMap := make(map[string]string)
			for _, m := range item.Mentions {
				if m != nil && m.Key != nil && m.Name != nil {
					mentionMap[*m.Key] = *m.Name
				}
			}

			msg := HistoryMessage{
				MsgID:   deref(item.MessageId),
				MsgType: deref(item.MsgType),
			}
			if ts, err := strconv.ParseInt(deref(item.CreateTime), 10, 64); err == nil {
				msg.CreateTime = ts
			}
			if item.Body != nil {
				msg.Content, msg.HasAttachment, _ = parseContent(msg.MsgType, deref(item.Body.Content), mentionMap)
			}
			if item.Sender != nil {
				msg.Sender = &Sender{
					SenderID:   deref(item.Sender.Id),
					SenderType: deref(item.Sender.SenderType),
					TenantKey:  deref(item.Sender.TenantKey),
				}
			}
			messages = append(messages, msg)
		}

		if resp.Data.HasMore == nil || !*resp.Data.HasMore || deref(resp.Data.PageToken) == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	c.log.Debug().Str("chat_id", chatID).Int("messages", len(messages)).Msg("history loaded")
	return messages, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
