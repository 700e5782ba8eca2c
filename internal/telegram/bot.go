package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
	"github.com/kitbuilder587/travel-insurance-bot/internal/ratelimit"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

// Conversation - то, что боту нужно от сервиса диалога
type Conversation interface {
	HandleMessage(ctx context.Context, id, text string) (*service.Reply, error)
	HandleDocument(ctx context.Context, id, text string) (*service.Reply, error)
	SetupTravelers(ctx context.Context, id string) (*service.Reply, error)
	Pay(ctx context.Context, id string) (*service.Reply, error)
	Status(ctx context.Context, id string) (*service.Reply, error)
	Reset(ctx context.Context, id string) error
}

type BotConfig struct {
	Token             string
	Debug             bool
	RequestsPerMinute int
}

type Bot struct {
	api          *tgbotapi.BotAPI
	conversation Conversation
	logger       *zap.Logger
	metrics      *metrics.Metrics
	handler      *Handler
	rateLimiter  *ratelimit.Limiter
	wg           sync.WaitGroup

	// в тестах сюда попадают исходящие сообщения вместо API
	sendHook func(chatID int64, text string)
}

func New(cfg BotConfig, conv Conversation, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(api, conv, cfg.RequestsPerMinute, logger, m)

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(api *tgbotapi.BotAPI, conv Conversation, perMinute int, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	bot := &Bot{
		api:          api,
		conversation: conv,
		logger:       logger,
		metrics:      m,
		rateLimiter: ratelimit.New(ratelimit.Config{
			RequestsPerMinute: perMinute,
			Source:            "telegram",
			Metrics:           m,
		}),
	}
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	defer b.rateLimiter.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message != nil && update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			b.metrics.RecordRequest("telegram", "panic", time.Since(startTime))
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.sendHook != nil {
		b.sendHook(chatID, text)
		return nil
	}
	if b.api == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendTyping(chatID int64) {
	if b.api == nil {
		return
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("send typing failed", zap.Error(err))
	}
}

// ProfileID - профиль ведется на пользователя телеграма, а не на чат
func ProfileID(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}
