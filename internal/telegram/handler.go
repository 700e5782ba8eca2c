package telegram

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/insurer"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

const maxMessageLen = 4096 // лимит телеграма

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	cmd, args := ParseCommand(msg.Text)
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.String("command", string(cmd)),
	)

	start := time.Now()
	kind := "telegram_" + string(cmd)
	if cmd == CmdNone {
		kind = "telegram_text"
	}

	switch cmd {
	case CmdStart:
		h.handleStart(ctx, msg)
	case CmdHelp:
		h.bot.Send(msg.Chat.ID, helpText)
	case CmdUnknown:
		h.bot.Send(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	case CmdStatus:
		h.handleStatus(ctx, msg)
	case CmdReset:
		h.handleReset(ctx, msg)
	default:
		// дальше ходы с LLM и страховщиком, их ограничиваем
		if !h.allow(msg) {
			return
		}
		h.handleTurn(ctx, msg, cmd, args)
	}

	h.bot.metrics.RecordRequest(kind, "processed", time.Since(start))
}

const helpText = `<b>Travel insurance assistant</b>

Just tell me about your trip: where, when and who is going. I will ask for whatever is still missing.

/status - What I know and what is missing
/travelers - Rebuild the traveler list from the number of adults and children
/doc TEXT - Paste passport or booking text
/pay - Pay for the current quote
/reset - Start over
/help - Show this help`

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	r, err := h.bot.conversation.Status(ctx, ProfileID(msg.From.ID))
	if err != nil {
		h.reportError(msg, err)
		return
	}
	if isBlank(r.Profile) {
		h.bot.Send(msg.Chat.ID, "Hi! I will help you insure your trip.\n\nWhere are you going, and when?")
		return
	}
	h.bot.Send(msg.Chat.ID, "Welcome back! Here is where we stopped.\n\n"+FormatReply(r))
}

func isBlank(p *domain.TripProfile) bool {
	return p == nil || (p.TripType == "" && p.ArrivalCountry == "" && p.DepartureDate == nil && len(p.Travelers) == 0)
}

func (h *Handler) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	r, err := h.bot.conversation.Status(ctx, ProfileID(msg.From.ID))
	if err != nil {
		h.reportError(msg, err)
		return
	}
	h.sendLong(msg.Chat.ID, FormatStatus(r))
}

func (h *Handler) handleReset(ctx context.Context, msg *tgbotapi.Message) {
	if err := h.bot.conversation.Reset(ctx, ProfileID(msg.From.ID)); err != nil {
		h.reportError(msg, err)
		return
	}
	h.bot.Send(msg.Chat.ID, "Done, everything is cleared. Where are you going next?")
}

func (h *Handler) handleTurn(ctx context.Context, msg *tgbotapi.Message, cmd Command, args string) {
	id := ProfileID(msg.From.ID)
	h.bot.SendTyping(msg.Chat.ID)

	var (
		r   *service.Reply
		err error
	)
	switch cmd {
	case CmdTravelers:
		r, err = h.bot.conversation.SetupTravelers(ctx, id)
	case CmdDoc:
		if args == "" {
			h.bot.Send(msg.Chat.ID, "Paste the document text after /doc, for example the two lines at the bottom of the passport page.")
			return
		}
		r, err = h.bot.conversation.HandleDocument(ctx, id, args)
	case CmdPay:
		r, err = h.bot.conversation.Pay(ctx, id)
	default:
		if args == "" {
			return
		}
		r, err = h.bot.conversation.HandleMessage(ctx, id, args)
	}

	if err != nil {
		h.reportError(msg, err)
		return
	}
	h.sendLong(msg.Chat.ID, FormatReply(r))
}

func (h *Handler) allow(msg *tgbotapi.Message) bool {
	key := ProfileID(msg.From.ID)
	if h.bot.rateLimiter.Allow(key) {
		return true
	}
	h.bot.logger.Warn("rate limit exceeded",
		zap.Int64("user_id", msg.From.ID),
		zap.Time("reset_at", h.bot.rateLimiter.ResetTime(key)),
	)
	h.bot.Send(msg.Chat.ID, "Too many messages. Please wait a minute.")
	return false
}

func (h *Handler) reportError(msg *tgbotapi.Message, err error) {
	h.bot.logger.Error("telegram turn failed",
		zap.Int64("user_id", msg.From.ID),
		zap.Error(err),
	)
	h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
}

func (h *Handler) sendLong(chatID int64, text string) {
	for _, m := range SplitMessage(text, maxMessageLen) {
		if err := h.bot.Send(chatID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoQuote):
		return "There is no quote yet. Let's finish your details first, see /status."
	case errors.Is(err, domain.ErrNoTravelerCount):
		return "Tell me how many adults and children are travelling first."
	case errors.Is(err, domain.ErrTooManyTravelers):
		return "That is too many travelers for one policy."
	case errors.Is(err, insurer.ErrPaymentFailed):
		return "Payment could not be processed. Please try /pay again later."
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long. Please try again."
	default:
		return "Something went wrong. Please try again later."
	}
}
