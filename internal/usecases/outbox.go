package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dealerhub/internal/entities"
	"dealerhub/internal/infrastructure"
	"dealerhub/internal/interfaces"
)

// DeliveryResult reports a successful delivery. MessageID is the platform id
// of the published message; callers targeting the message later (edits,
// closes) persist it on their domain record.
type DeliveryResult struct {
	MessageID int
}

// Outbox turns declarative effects into chat-platform calls with bounded
// retry. Transient failures (network, rate limit, server errors) back off
// exponentially up to the attempt budget; permanent rejections surface
// immediately. Audit writes are fire-and-forget.
type Outbox struct {
	limiter *infrastructure.ChatRateLimiter
	audit   interfaces.MessageAuditor
	log     zerolog.Logger

	maxAttempts int
	baseDelay   time.Duration
	callTimeout time.Duration
}

func NewOutbox(limiter *infrastructure.ChatRateLimiter, audit interfaces.MessageAuditor, log zerolog.Logger) *Outbox {
	return &Outbox{
		limiter:     limiter,
		audit:       audit,
		log:         log.With().Str("component", "outbox").Logger(),
		maxAttempts: 4,
		baseDelay:   500 * time.Millisecond,
		callTimeout: 30 * time.Second,
	}
}

// Execute delivers one effect through the given sender and returns the
// delivery result. BotID scopes the audit record.
func (o *Outbox) Execute(ctx context.Context, sender interfaces.ChatSender, botID int, eff entities.Effect) (*DeliveryResult, error) {
	var res *DeliveryResult
	err := o.withRetry(ctx, eff, func(callCtx context.Context) error {
		var err error
		res, err = o.deliver(callCtx, sender, eff)
		return err
	})
	if err != nil {
		return nil, err
	}

	if eff.Kind == entities.EffectSendText || eff.Kind == entities.EffectShowMenu || eff.Kind == entities.EffectEditText {
		o.auditOut(botID, eff)
	}
	return res, nil
}

func (o *Outbox) deliver(ctx context.Context, sender interfaces.ChatSender, eff entities.Effect) (*DeliveryResult, error) {
	switch eff.Kind {
	case entities.EffectSendText, entities.EffectShowMenu:
		id, err := sender.SendText(ctx, eff.ChatID, eff.Text, eff.Buttons)
		if err != nil {
			return nil, err
		}
		return &DeliveryResult{MessageID: id}, nil

	case entities.EffectEditText:
		if err := sender.EditText(ctx, eff.ChatID, eff.MessageID, eff.Text, eff.Buttons); err != nil {
			return nil, err
		}
		return &DeliveryResult{MessageID: eff.MessageID}, nil

	case entities.EffectAnswerCallback:
		if err := sender.AnswerCallback(ctx, eff.CallbackID, eff.Text); err != nil {
			return nil, err
		}
		return &DeliveryResult{}, nil
	}
	return nil, entities.PermanentDelivery(fmt.Errorf("unknown effect kind %q", eff.Kind))
}

// withRetry runs fn with the per-call timeout, waiting out the per-chat rate
// limit before each attempt and backing off between transient failures.
func (o *Outbox) withRetry(ctx context.Context, eff entities.Effect, fn func(context.Context) error) error {
	var lastErr error
	delay := o.baseDelay

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if eff.ChatID != "" {
			if err := o.limiter.Wait(ctx, eff.ChatID); err != nil {
				return entities.TransientDelivery(err, 0)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if entities.IsPermanentDelivery(err) {
			return err
		}
		lastErr = err

		wait := delay
		var de *entities.DeliveryError
		if errors.As(err, &de) && de.RetryAfter > wait {
			wait = de.RetryAfter
		}
		o.log.Warn().Err(err).Str("chat_id", eff.ChatID).Int("attempt", attempt).Dur("backoff", wait).Msg("delivery failed, retrying")

		select {
		case <-ctx.Done():
			return entities.TransientDelivery(ctx.Err(), 0)
		case <-time.After(wait):
		}
		delay *= 2
	}
	return fmt.Errorf("delivery gave up after %d attempts: %w", o.maxAttempts, lastErr)
}

// auditOut records outbound traffic best-effort: a failed write is logged
// and never fails the send it accompanies.
func (o *Outbox) auditOut(botID int, eff entities.Effect) {
	if o.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.audit.Log(ctx, &entities.MessageLog{
		BotID:     botID,
		ChatID:    eff.ChatID,
		Direction: "out",
		Content:   eff.Text,
	}); err != nil {
		o.log.Warn().Err(err).Str("chat_id", eff.ChatID).Msg("audit log write failed")
	}
}
