package tgbot

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"students-bot/internal/config"
	"students-bot/internal/dialog"
	"students-bot/internal/session"
	"students-bot/internal/store"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type recordingHandler struct {
	mu     sync.Mutex
	events map[int64][]dialog.Event
}

func (h *recordingHandler) Handle(_ context.Context, userID int64, ev dialog.Event) []dialog.Prompt {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events == nil {
		h.events = map[int64][]dialog.Event{}
	}
	h.events[userID] = append(h.events[userID], ev)
	return []dialog.Prompt{{Text: "ok"}}
}

func textMsg(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{From: &tgbotapi.User{ID: userID}, Chat: &tgbotapi.Chat{ID: userID}, Text: text}
}

func callback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: userID}, Data: data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}}}
}

func TestMessagesDecodeToEvents(t *testing.T) {
	h := &recordingHandler{}
	a := newApp(config.Config{Workers: 1}, &fakeSender{}, h, nil)
	ctx := context.Background()

	require.NoError(t, a.handleMessage(ctx, textMsg(1, "/start")))
	require.NoError(t, a.handleMessage(ctx, textMsg(1, "/menu@StudentsBot")))
	require.NoError(t, a.handleMessage(ctx, textMsg(1, "  Ivan ")))
	require.NoError(t, a.handleMessage(ctx, textMsg(1, "")))

	assert.Equal(t, []dialog.Event{dialog.Start{}, dialog.Start{}, dialog.Text{Text: "Ivan"}}, h.events[1])
}

func TestCallbacksDecodeOnceAndDropUnknown(t *testing.T) {
	h := &recordingHandler{}
	fs := &fakeSender{}
	a := newApp(config.Config{Workers: 1}, fs, h, nil)
	ctx := context.Background()

	require.NoError(t, a.handleCallback(ctx, callback(1, "status:OnHold")))
	require.NoError(t, a.handleCallback(ctx, callback(1, "select:abc-1")))
	require.NoError(t, a.handleCallback(ctx, callback(1, "u:stages")))

	assert.Equal(t, []dialog.Event{
		dialog.Button{Command: dialog.SetStatus{Status: "OnHold"}},
		dialog.Button{Command: dialog.SelectCandidate{ID: "abc-1"}},
	}, h.events[1])
	assert.Equal(t, 3, fs.requests, "every callback is acknowledged")
}

func TestOperatorAllowlist(t *testing.T) {
	h := &recordingHandler{}
	fs := &fakeSender{}
	a := newApp(config.Config{Workers: 1, OperatorIDs: []int64{10}}, fs, h, nil)

	require.NoError(t, a.handleMessage(context.Background(), textMsg(99, "/start")))
	require.NoError(t, a.handleCallback(context.Background(), callback(99, "add_student")))
	assert.Empty(t, h.events)
	require.Len(t, fs.sent, 2)
	assert.Equal(t, "Access denied.", fs.sent[0].Text)

	require.NoError(t, a.handleMessage(context.Background(), textMsg(10, "/start")))
	assert.Len(t, h.events[10], 1)
}

func TestExportCommandSendsSignedLink(t *testing.T) {
	fs := &fakeSender{}
	a := newApp(config.Config{Workers: 1, BasePublicURL: "https://bot.example.com", ExportSecret: "s"}, fs, &recordingHandler{}, nil)
	require.NoError(t, a.handleMessage(context.Background(), textMsg(1, "/export")))
	require.Len(t, fs.sent, 1)
	assert.Contains(t, fs.sent[0].Text, "https://bot.example.com/export/students.csv?token=")
}

func TestRenderChoice(t *testing.T) {
	msg := render(5, dialog.Prompt{Text: "pick", Options: []dialog.Option{
		{Label: "Confirm", Token: "confirm"},
		{Label: "Cancel", Token: "cancel"},
	}})
	assert.Equal(t, int64(5), msg.ChatID)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "cancel", *kb.InlineKeyboard[1][0].CallbackData)

	plain := render(5, dialog.Prompt{Text: "hi"})
	assert.Nil(t, plain.ReplyMarkup)
}

func TestConsumeKeepsPerUserOrder(t *testing.T) {
	h := &recordingHandler{}
	a := newApp(config.Config{Workers: 3}, &fakeSender{}, h, nil)

	updates := make(chan tgbotapi.Update, 100)
	var want = map[int64][]dialog.Event{}
	for i := 0; i < 30; i++ {
		uid := int64(i%4 + 1)
		txt := string(rune('a' + i))
		updates <- tgbotapi.Update{UpdateID: i, Message: textMsg(uid, txt)}
		want[uid] = append(want[uid], dialog.Text{Text: txt})
	}
	close(updates)

	require.NoError(t, a.consume(context.Background(), updates))
	assert.Equal(t, want, h.events)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	a := newApp(config.Config{Workers: 2}, &fakeSender{}, &recordingHandler{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.consume(ctx, make(chan tgbotapi.Update))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFullDialogueThroughTransport(t *testing.T) {
	fstore, err := store.NewFileStore(filepath.Join(t.TempDir(), "students.json"), nil)
	require.NoError(t, err)
	m := dialog.New(fstore, session.NewStore(), nil)
	fs := &fakeSender{}
	a := newApp(config.Config{Workers: 1}, fs, m, nil)
	ctx := context.Background()

	require.NoError(t, a.handleMessage(ctx, textMsg(1, "/start")))
	require.NoError(t, a.handleCallback(ctx, callback(1, "add_student")))
	for _, in := range []string{"Ivan", "Petrov", "15", "GC School", "Standard", "Olga", "12345", "none", "Maria", "54321"} {
		require.NoError(t, a.handleMessage(ctx, textMsg(1, in)))
	}
	require.NoError(t, a.handleCallback(ctx, callback(1, "confirm")))

	all, err := fstore.Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ivan", all[0].Name)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "Student added successfully!", fs.sent[len(fs.sent)-2].Text)
}
