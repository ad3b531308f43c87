package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dealerhub/internal/entities"
	"dealerhub/internal/interfaces"
)

// SenderProvider hands out the chat sender for a resolved bot. Backed by the
// bot manager, which connects the bot on first use.
type SenderProvider interface {
	SenderFor(b *entities.Bot) (interfaces.ChatSender, error)
}

// PostStore is the persistence slice the lifecycle needs from the channel
// post repository.
type PostStore interface {
	Create(ctx context.Context, post *entities.ChannelPost) error
	GetOpenByRequest(ctx context.Context, requestID int) (*entities.ChannelPost, error)
	GetByRequest(ctx context.Context, requestID int) (*entities.ChannelPost, error)
	Update(ctx context.Context, post *entities.ChannelPost) error
}

// RequestStore reads request snapshots and flips their status on close.
type RequestStore interface {
	GetByID(ctx context.Context, id int) (*entities.Request, error)
	SetStatus(ctx context.Context, id int, status string) error
}

// PublishOptions parameterize a channel publish. Zero values fall back to
// the bot's configured channel and the RAW template.
type PublishOptions struct {
	BotID     int
	ChannelID string
	Text      string
	Template  entities.PostTemplate
}

// UpdateOptions parameterize an in-place edit of a published post.
type UpdateOptions struct {
	Text      string
	ChannelID string
}

// ChannelPostService owns the ACTIVE -> UPDATED -> CLOSED lifecycle of
// published cards. Every transition resolves the owning bot's credentials
// first; a resolution failure aborts with the post untouched. Publishing
// after close creates a new post rather than reopening the old one.
type ChannelPostService struct {
	posts    PostStore
	requests RequestStore
	bots     interfaces.BotResolver
	senders  SenderProvider
	outbox   *Outbox
	log      zerolog.Logger
}

func NewChannelPostService(
	posts PostStore,
	requests RequestStore,
	bots interfaces.BotResolver,
	senders SenderProvider,
	outbox *Outbox,
	log zerolog.Logger,
) *ChannelPostService {
	return &ChannelPostService{
		posts:    posts,
		requests: requests,
		bots:     bots,
		senders:  senders,
		outbox:   outbox,
		log:      log.With().Str("component", "channel_posts").Logger(),
	}
}

// Publish renders the request and sends it to the channel, recording a new
// ACTIVE post with the platform message id for later edits.
func (s *ChannelPostService) Publish(ctx context.Context, requestID int, opts PublishOptions) (*entities.ChannelPost, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %d not found", requestID)
	}

	bot, err := s.bots.Resolve(ctx, opts.BotID)
	if err != nil {
		return nil, err
	}
	channel := opts.ChannelID
	if channel == "" {
		channel = bot.ChannelID
	}
	if channel == "" {
		return nil, fmt.Errorf("bot %d has no channel configured: %w", bot.ID, entities.ErrBotUnavailable)
	}

	text := opts.Text
	if text == "" {
		text = RenderTemplate(req, opts.Template)
	}

	sender, err := s.senders.SenderFor(bot)
	if err != nil {
		return nil, err
	}

	eff := entities.Effect{
		Kind:    entities.EffectSendText,
		ChatID:  channel,
		Text:    text,
		Buttons: deepLinkRows(bot, req),
	}
	res, err := s.outbox.Execute(ctx, sender, bot.ID, eff)
	if err != nil {
		return nil, err
	}

	post := &entities.ChannelPost{
		RequestID: requestID,
		BotID:     bot.ID,
		ChannelID: channel,
		MessageID: res.MessageID,
		Status:    entities.PostActive,
		Payload:   text,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.log.Info().Int("request_id", requestID).Int("message_id", post.MessageID).Str("channel", channel).Msg("channel post published")
	return post, nil
}

// Update re-renders the card in place, keeping the same message id and
// flipping the post to UPDATED.
func (s *ChannelPostService) Update(ctx context.Context, requestID int, opts UpdateOptions) (*entities.ChannelPost, error) {
	post, err := s.openPost(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !post.CanTransitionTo(entities.PostUpdated) {
		return nil, entities.ErrPostClosed
	}
	if opts.ChannelID != "" && opts.ChannelID != post.ChannelID {
		// Edits always target the message where it was published; a different
		// channel means the caller holds a stale reference.
		return nil, fmt.Errorf("post for request %d lives in %s, not %s", requestID, post.ChannelID, opts.ChannelID)
	}

	bot, err := s.bots.Resolve(ctx, post.BotID)
	if err != nil {
		return nil, err
	}
	sender, err := s.senders.SenderFor(bot)
	if err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %d not found", requestID)
	}

	text := opts.Text
	if text == "" {
		text = RenderTemplate(req, entities.TemplateRaw)
	}

	eff := entities.Effect{
		Kind:      entities.EffectEditText,
		ChatID:    post.ChannelID,
		MessageID: post.MessageID,
		Text:      text,
		Buttons:   deepLinkRows(bot, req),
	}
	if _, err := s.outbox.Execute(ctx, sender, bot.ID, eff); err != nil {
		return nil, err
	}

	post.Status = entities.PostUpdated
	post.Payload = text
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Close appends the closed banner, strips the interactive controls and flips
// the post to its terminal CLOSED state. A second close is rejected.
func (s *ChannelPostService) Close(ctx context.Context, requestID int) (*entities.ChannelPost, error) {
	post, err := s.openPost(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !post.CanTransitionTo(entities.PostClosed) {
		return nil, entities.ErrPostClosed
	}

	bot, err := s.bots.Resolve(ctx, post.BotID)
	if err != nil {
		return nil, err
	}
	sender, err := s.senders.SenderFor(bot)
	if err != nil {
		return nil, err
	}

	text := post.Payload + ClosedBanner
	eff := entities.Effect{
		Kind:      entities.EffectEditText,
		ChatID:    post.ChannelID,
		MessageID: post.MessageID,
		Text:      text,
		// No buttons: closing strips the keyboard.
	}
	if _, err := s.outbox.Execute(ctx, sender, bot.ID, eff); err != nil {
		return nil, err
	}

	post.Status = entities.PostClosed
	post.Payload = text
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	// Request status follows the post; failure here is logged, the post is
	// already closed externally.
	if err := s.requests.SetStatus(ctx, requestID, "closed"); err != nil {
		s.log.Warn().Err(err).Int("request_id", requestID).Msg("failed to flip request status")
	}

	return post, nil
}

func (s *ChannelPostService) openPost(ctx context.Context, requestID int) (*entities.ChannelPost, error) {
	post, err := s.posts.GetOpenByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		// Either never published or already closed; both reject the edit.
		latest, err := s.posts.GetByRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.Status == entities.PostClosed {
			return nil, entities.ErrPostClosed
		}
		return nil, fmt.Errorf("request %d has no published channel post", requestID)
	}
	return post, nil
}

// deepLinkRows builds the card's contact button: a deep link that opens the
// bot with the request id as start payload.
func deepLinkRows(bot *entities.Bot, req *entities.Request) [][]entities.Button {
	if bot.Username == "" || req == nil {
		return nil
	}
	url := fmt.Sprintf("https://t.me/%s?start=req_%d", bot.Username, req.ID)
	return [][]entities.Button{{{Label: "💬 Contact dealer", Data: url}}}
}
