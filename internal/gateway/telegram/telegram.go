// Package telegram is the Telegram implementation of the messaging
// gateway: it delivers call notifications with inline open/ignore
// controls and routes the tenant's callback responses into the action
// resolver.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/domofon-gateway/internal/action"
	"github.com/jmehdipour/domofon-gateway/internal/bot"
	"github.com/jmehdipour/domofon-gateway/internal/gateway"
	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/jmehdipour/domofon-gateway/internal/session"
	"github.com/jmehdipour/domofon-gateway/internal/token"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

type Adapter struct {
	bot         *telego.Bot
	flow        *bot.Flow
	resolver    *action.Resolver
	sessions    *session.Store
	sendTimeout time.Duration
	log         *zap.Logger
}

func NewAdapter(tg *telego.Bot, flow *bot.Flow, resolver *action.Resolver, sessions *session.Store, sendTimeout time.Duration, log *zap.Logger) *Adapter {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Adapter{
		bot:         tg,
		flow:        flow,
		resolver:    resolver,
		sessions:    sessions,
		sendTimeout: sendTimeout,
		log:         log.With(zap.String("component", "gateway.telegram")),
	}
}

// Deliver sends one composed notification: photo with caption when an
// image URL is present, plain text otherwise, with the notification's
// actions as an inline keyboard (one row per action).
func (a *Adapter) Deliver(ctx context.Context, address string, note model.Notification) (gateway.DeliveryReceipt, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(address), 10, 64)
	if err != nil {
		return gateway.DeliveryReceipt{}, fmt.Errorf("bad notify address %q: %w", address, err)
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(note.Actions))
	for _, act := range note.Actions {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(act.Label).WithCallbackData(act.Token),
		))
	}
	keyboard := tu.InlineKeyboard(rows...)

	sendCtx, cancel := context.WithTimeout(ctx, a.sendTimeout)
	defer cancel()

	var msg *telego.Message
	if note.ImageURL != "" {
		msg, err = a.bot.SendPhoto(sendCtx, tu.Photo(tu.ID(chatID), tu.FileFromURL(note.ImageURL)).
			WithCaption(note.Text).
			WithParseMode(telego.ModeMarkdown).
			WithReplyMarkup(keyboard))
	} else {
		msg, err = a.bot.SendMessage(sendCtx, tu.Message(tu.ID(chatID), note.Text).
			WithParseMode(telego.ModeMarkdown).
			WithReplyMarkup(keyboard))
	}
	if err != nil {
		return gateway.DeliveryReceipt{}, fmt.Errorf("telegram send: %w", err)
	}

	return gateway.DeliveryReceipt{MessageID: strconv.Itoa(msg.MessageID)}, nil
}

// Run starts long polling and blocks until ctx is cancelled. Messages go
// to the chat flow; callback queries go to the action resolver.
func (a *Adapter) Run(ctx context.Context) error {
	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("telegram gateway started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			switch {
			case update.Message != nil:
				a.flow.HandleMessage(ctx, a.bot, update.Message)
			case update.CallbackQuery != nil:
				a.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

// handleCallback acknowledges the press, strips the inline keyboard so
// the control cannot be pressed again at the UI level, and reports the
// resolver's outcome back to the chat.
func (a *Adapter) handleCallback(ctx context.Context, q *telego.CallbackQuery) {
	defer func() {
		if err := a.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(q.ID)); err != nil {
			a.log.Debug("answer callback failed", zap.Error(err))
		}
	}()

	if q.Message == nil {
		return
	}
	chat := q.Message.GetChat()
	chatKey := strconv.FormatInt(chat.ID, 10)

	kind, deviceID, err := token.Decode(q.Data)
	if err != nil {
		a.log.Warn("malformed callback token", zap.String("data", q.Data), zap.String("chat_id", chatKey))
		a.reply(ctx, chat.ID, "❌ Некорректное действие")
		return
	}

	// Browse-flow snapshot buttons never touch the resolver.
	if kind == token.KindSnapshot {
		a.flow.SendSnapshot(ctx, a.bot, chat.ID, deviceID)
		return
	}

	tenantID, ok := a.sessions.Tenant(chatKey)
	if !ok {
		a.reply(ctx, chat.ID, "❌ Ошибка: пользователь не авторизован")
		return
	}

	outcome, err := a.resolver.Resolve(ctx, q.Data, tenantID)
	switch {
	case err == nil, errors.Is(err, action.ErrAlreadyHandled):
		a.clearKeyboard(ctx, chat.ID, q.Message.GetMessageID())
	case errors.Is(err, action.ErrInvalidAction):
		a.reply(ctx, chat.ID, "❌ Некорректное действие")
		return
	default:
		a.log.Error("action resolution failed",
			zap.String("chat_id", chatKey),
			zap.Int64("tenant_id", tenantID),
			zap.Error(err))
	}

	if outcome.UserText != "" {
		a.reply(ctx, chat.ID, outcome.UserText)
	} else {
		a.reply(ctx, chat.ID, "❌ Произошла ошибка")
	}
}

// clearKeyboard replaces the message's action controls with nothing once
// the choice is consumed.
func (a *Adapter) clearKeyboard(ctx context.Context, chatID int64, messageID int) {
	_, err := a.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	})
	if err != nil {
		a.log.Debug("clear keyboard failed", zap.Error(err))
	}
}

func (a *Adapter) reply(ctx context.Context, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, a.sendTimeout)
	defer cancel()

	_, err := a.bot.SendMessage(sendCtx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown))
	if err != nil {
		a.log.Error("send reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
