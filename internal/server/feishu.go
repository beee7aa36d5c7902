package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/infra/feishu"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/metrics"
)

// Responder answers messages addressed to the bot
type Responder interface {
	ShouldRespond(msg *domain.InboundMessage) bool
	Respond(ctx context.Context, msg *domain.InboundMessage)
}

// Bundles collects sourcing posts per channel and user
type Bundles interface {
	Add(msg domain.InboundMessage)
}

// Routes an inbound message can take
const (
	RouteDuplicate = "duplicate"
	RouteBot       = "bot"
	RouteRespond   = "respond"
	RouteBundle    = "bundle"
)

// FeishuServer turns Feishu events into bundler input and conversational replies
type FeishuServer struct {
	client    *feishu.Client
	messages  repo.MessageRepo
	dedup     repo.DedupRepo
	responder Responder
	bundles   Bundles
	log       zerolog.Logger
	metrics   *metrics.Metrics

	lookupTimeout time.Duration
	replyTimeout  time.Duration

	replies sync.WaitGroup
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	client *feishu.Client,
	messages repo.MessageRepo,
	dedup repo.DedupRepo,
	responder Responder,
	bundles Bundles,
	log zerolog.Logger,
	m *metrics.Metrics,
) *FeishuServer {
	return &FeishuServer{
		client:        client,
		messages:      messages,
		dedup:         dedup,
		responder:     responder,
		bundles:       bundles,
		log:           log,
		metrics:       m,
		lookupTimeout: 5 * time.Second,
		replyTimeout:  45 * time.Second,
	}
}

// Start registers the message handler and blocks on the websocket connection
func (s *FeishuServer) Start(ctx context.Context) error {
	s.client.OnMessage(s.HandleMessage)
	return s.client.Start(ctx)
}

// Stop disconnects and waits for in-flight replies
func (s *FeishuServer) Stop() {
	s.client.Stop()
	s.replies.Wait()
}

// HandleMessage routes one received message
func (s *FeishuServer) HandleMessage(msg *feishu.Message) {
	route := s.route(msg)
	s.metrics.Message(route)
}

func (s *FeishuServer) route(msg *feishu.Message) string {
	ctx, cancel := context.WithTimeout(context.Background(), s.lookupTimeout)
	defer cancel()

	if msg.MsgID != "" && s.dedup != nil {
		seen, err := s.dedup.MarkSeen(ctx, msg.MsgID)
		if err != nil {
			s.log.Warn().Err(err).Str("message_id", msg.MsgID).Msg("dedup check failed")
		} else if seen {
			s.log.Debug().Str("message_id", msg.MsgID).Msg("duplicate message ignored")
			return RouteDuplicate
		}
	}

	if msg.Sender.IsBot() {
		return RouteBot
	}

	in := s.inbound(ctx, msg)
	s.log.Debug().
		Str("chat_id", in.ChannelID).
		Str("user_id", in.UserID).
		Str("msg_type", msg.MsgType).
		Bool("mentions_bot", in.MentionsBot).
		Msg("message received")

	if s.responder != nil && s.responder.ShouldRespond(&in) {
		s.replies.Add(1)
		go func() {
			defer s.replies.Done()
			rctx, rcancel := context.WithTimeout(context.Background(), s.replyTimeout)
			defer rcancel()
			s.responder.Respond(rctx, &in)
		}()
		return RouteRespond
	}

	s.bundles.Add(in)
	return RouteBundle
}

// inbound converts a Feishu message; name lookups that fail leave names empty
func (s *FeishuServer) inbound(ctx context.Context, msg *feishu.Message) domain.InboundMessage {
	in := domain.InboundMessage{
		ID:            msg.MsgID,
		ChannelID:     msg.ChatID,
		Text:          msg.Content,
		HasAttachment: msg.HasAttachment,
		MentionsBot:   msg.MentionsBot,
		CreatedAt:     time.Now(),
	}
	if msg.CreateTime > 0 {
		in.CreatedAt = time.UnixMilli(msg.CreateTime)
	}
	if msg.Sender != nil {
		in.UserID = msg.Sender.SenderID
	}

	if name, err := s.messages.ChatName(ctx, msg.ChatID); err == nil {
		in.ChannelName = name
	} else {
		s.log.Debug().Err(err).Str("chat_id", msg.ChatID).Msg("chat name lookup failed")
	}
	if in.UserID != "" {
		if name, err := s.messages.UserName(ctx, msg.ChatID, in.UserID); err == nil {
			in.UserName = name
		} else {
			s.log.Debug().Err(err).Str("user_id", in.UserID).Msg("user name lookup failed")
		}
	}
	return in
}
