package tgbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"students-bot/internal/config"
	"students-bot/internal/dialog"
	"students-bot/internal/server"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler is the conversation state machine as seen by the transport.
type Handler interface {
	Handle(ctx context.Context, userID int64, ev dialog.Event) []dialog.Prompt
}

type App struct {
	cfg       config.Config
	api       *tgbotapi.BotAPI
	bot       sender
	handler   Handler
	operators map[int64]bool
	log       *slog.Logger
}

func New(cfg config.Config, h Handler, log *slog.Logger) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	a := newApp(cfg, b, h, log)
	a.api = b
	return a, nil
}

func newApp(cfg config.Config, s sender, h Handler, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{
		cfg:       cfg,
		bot:       s,
		handler:   h,
		operators: cfg.Operators(),
		log:       log.With("component", "tgbot"),
	}
}

// Run long-polls Telegram until ctx is done.
func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.api.GetUpdatesChan(u)
	defer a.api.StopReceivingUpdates()
	a.log.Info("bot started", "username", a.api.Self.UserName, "workers", a.cfg.Workers)
	return a.consume(ctx, updates)
}

// consume shards updates by user onto a.cfg.Workers ordered queues: one
// user's events keep their arrival order, different users run in parallel.
func (a *App) consume(ctx context.Context, updates <-chan tgbotapi.Update) error {
	n := a.cfg.Workers
	if n < 1 {
		n = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	shards := make([]chan tgbotapi.Update, n)
	for i := range shards {
		ch := make(chan tgbotapi.Update, 64)
		shards[i] = ch
		g.Go(func() error {
			for upd := range ch {
				if err := a.handleUpdate(gctx, upd); err != nil {
					a.log.Error("handle update", "update_id", upd.UpdateID, "err", err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range shards {
				close(ch)
			}
		}()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case upd, ok := <-updates:
				if !ok {
					return nil
				}
				ch := shards[shardOf(userOf(upd), n)]
				select {
				case ch <- upd:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
	})
	return g.Wait()
}

func shardOf(userID int64, n int) int {
	if userID < 0 {
		userID = -userID
	}
	return int(userID % int64(n))
}

func userOf(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID
	}
	return 0
}

func (a *App) handleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	if upd.Message != nil {
		return a.handleMessage(ctx, upd.Message)
	}
	if upd.CallbackQuery != nil {
		return a.handleCallback(ctx, upd.CallbackQuery)
	}
	return nil
}

func (a *App) allowed(userID int64) bool {
	return len(a.operators) == 0 || a.operators[userID]
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil || m.Chat == nil {
		return nil
	}
	tgID := m.From.ID
	if !a.allowed(tgID) {
		a.log.Warn("access denied", "user_id", tgID, "username", m.From.UserName)
		return a.SendText(m.Chat.ID, "Access denied.")
	}
	txt := strings.TrimSpace(m.Text)

	if cmd, ok := command(txt); ok {
		switch cmd {
		case "start", "menu":
			return a.reply(ctx, m.Chat.ID, tgID, dialog.Start{})
		case "export":
			return a.SendText(m.Chat.ID, "📤 CSV export: "+server.ExportURL(a.cfg))
		default:
			return a.SendText(m.Chat.ID, "Unknown command. Press /start")
		}
	}
	if txt == "" {
		return nil
	}
	return a.reply(ctx, m.Chat.ID, tgID, dialog.Text{Text: txt})
}

// command extracts "start" from "/start" or "/start@SomeBot args".
func command(txt string) (string, bool) {
	if !strings.HasPrefix(txt, "/") {
		return "", false
	}
	word := strings.Fields(txt)[0][1:]
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	return strings.ToLower(word), word != ""
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.From == nil {
		return nil
	}
	tgID := q.From.ID

	// ack
	if _, err := a.bot.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		a.log.Debug("callback ack", "user_id", tgID, "err", err)
	}

	chatID := tgID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	if !a.allowed(tgID) {
		return a.SendText(chatID, "Access denied.")
	}
	cmd, ok := dialog.DecodeCommand(q.Data)
	if !ok {
		a.log.Debug("unknown callback dropped", "user_id", tgID, "data", q.Data)
		return nil
	}
	return a.reply(ctx, chatID, tgID, dialog.Button{Command: cmd})
}

// ---------- Rendering ----------

func (a *App) reply(ctx context.Context, chatID, tgID int64, ev dialog.Event) error {
	for _, p := range a.handler.Handle(ctx, tgID, ev) {
		if _, err := a.bot.Send(render(chatID, p)); err != nil {
			return fmt.Errorf("send prompt: %w", err)
		}
	}
	return nil
}

func render(chatID int64, p dialog.Prompt) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, p.Text)
	if !p.IsChoice() {
		return msg
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(p.Options))
	for _, o := range p.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Token),
		))
	}
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return msg
}

func (a *App) SendText(chatID int64, text string) error {
	_, err := a.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
