package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

// sender is the part of tgbotapi.BotAPI the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Deps struct {
	Launcher   *service.Launcher
	Results    *service.Results
	RunnerOpts []service.RunnerOption
	ExitWindow time.Duration
	// EditsPerSecond limits countdown edits per chat; Telegram throttles
	// bots that edit the same message too often.
	EditsPerSecond float64
	Log            *zap.Logger
}

type Bot struct {
	api  *tgbotapi.BotAPI
	send sender
	deps Deps
	log  *zap.Logger

	mu      sync.Mutex
	chats   map[int64]*chat
	pending map[int64]service.Selection
}

// chat is one running quiz.
type chat struct {
	mu        sync.Mutex
	id        int64
	runner    *service.Runner
	selection service.Selection
	selected  service.Option
	messageID int
	guard     *service.ExitGuard
	limiter   *rate.Limiter
}

func NewBot(token string, debug bool, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug

	b := newBot(api, deps)
	b.api = api
	return b, nil
}

func newBot(s sender, deps Deps) *Bot {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.EditsPerSecond <= 0 {
		deps.EditsPerSecond = 1
	}
	return &Bot{
		send:    s,
		deps:    deps,
		log:     deps.Log,
		chats:   make(map[int64]*chat),
		pending: make(map[int64]service.Selection),
	}
}

func snapshotKey(chatID int64) string {
	return fmt.Sprintf("chat-%d", chatID)
}

// Start polls for updates until ctx is cancelled, then saves every running
// session so it can be resumed after a restart.
func (b *Bot) Start(ctx context.Context) error {
	b.log.Info("authorised on account", zap.String("username", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	defer b.Shutdown(context.Background())
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		chatID := update.Message.Chat.ID
		switch update.Message.Command() {
		case "start":
			b.sendMainMenu(ctx, chatID)
		case "quiz":
			b.chooseCategory(ctx, chatID)
		case "highscore":
			b.handleHighscore(ctx, chatID)
		case "exit":
			b.handleExit(ctx, chatID, "")
		default:
			b.sendMessage(chatID, "Unknown command")
		}
	}
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	switch {
	case data == cbStartQuiz:
		b.answerCallback(callback.ID, "")
		b.chooseCategory(ctx, chatID)
	case data == cbResume:
		b.answerCallback(callback.ID, "")
		b.resumeQuiz(ctx, chatID)
	case data == cbHighscore:
		b.answerCallback(callback.ID, "")
		b.handleHighscore(ctx, chatID)
	case data == cbBackToMenu:
		b.answerCallback(callback.ID, "")
		b.sendMainMenu(ctx, chatID)
	case strings.HasPrefix(data, cbCategory):
		b.answerCallback(callback.ID, "")
		b.chooseDifficulty(ctx, chatID, strings.TrimPrefix(data, cbCategory))
	case strings.HasPrefix(data, cbDifficulty):
		b.answerCallback(callback.ID, "")
		b.startQuiz(ctx, chatID, service.Difficulty(strings.TrimPrefix(data, cbDifficulty)))
	case strings.HasPrefix(data, cbOption):
		b.answerCallback(callback.ID, "")
		b.selectOption(chatID, strings.TrimPrefix(data, cbOption))
	case data == cbConfirm:
		b.confirmAnswer(ctx, chatID, callback.ID)
	case data == cbNext:
		b.answerCallback(callback.ID, "")
		b.nextQuestion(ctx, chatID)
	case data == cbExit:
		b.handleExit(ctx, chatID, callback.ID)
	default:
		b.answerCallback(callback.ID, "Unknown command")
	}
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID int64) {
	highscore, err := b.deps.Results.Highscore(ctx)
	if err != nil {
		b.log.Error("reading highscore", zap.Error(err))
	}

	canResume := b.running(chatID) == nil && b.deps.Launcher.HasSaved(ctx, snapshotKey(chatID))

	text, kb := mainMenu(highscore, canResume)
	b.sendMarkdown(chatID, text, &kb)
}

func (b *Bot) handleHighscore(ctx context.Context, chatID int64) {
	highscore, err := b.deps.Results.Highscore(ctx)
	if err != nil {
		b.log.Error("reading highscore", zap.Error(err))
		b.sendMessage(chatID, "Highscore is not available right now")
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("🏆 Highscore: %d", highscore))
}

func (b *Bot) chooseCategory(ctx context.Context, chatID int64) {
	categories, err := b.deps.Launcher.Categories(ctx)
	if err != nil {
		b.log.Error("listing categories", zap.Error(err))
		b.sendMessage(chatID, "Categories are not available right now")
		return
	}
	kb := categoryKeyboard(categories)
	b.sendMarkdown(chatID, "📚 *Choose a category*", &kb)
}

func (b *Bot) chooseDifficulty(ctx context.Context, chatID int64, rawID string) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return
	}
	categories, err := b.deps.Launcher.Categories(ctx)
	if err != nil {
		b.log.Error("listing categories", zap.Error(err))
		return
	}
	sel := service.Selection{CategoryID: id}
	for _, c := range categories {
		if c.ID == id {
			sel.CategoryName = c.Name
		}
	}

	b.mu.Lock()
	b.pending[chatID] = sel
	b.mu.Unlock()

	kb := difficultyKeyboard()
	b.sendMarkdown(chatID, fmt.Sprintf("📚 %s\n\n*Choose a difficulty*", sel.CategoryName), &kb)
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, difficulty service.Difficulty) {
	b.mu.Lock()
	sel, ok := b.pending[chatID]
	delete(b.pending, chatID)
	b.mu.Unlock()
	if !ok {
		b.chooseCategory(ctx, chatID)
		return
	}
	sel.Difficulty = difficulty

	// A new quiz replaces a running one without a result.
	b.cancelRunning(ctx, chatID)

	session, err := b.deps.Launcher.Launch(ctx, sel)
	if errors.Is(err, service.ErrEmptyQuestionSet) {
		kb := resultKeyboard()
		b.sendMarkdown(chatID, "🤷 No questions available for this category and difficulty.", &kb)
		return
	}
	if err != nil {
		b.log.Error("starting quiz", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendMessage(chatID, "Could not start the quiz")
		return
	}
	b.run(ctx, chatID, sel, session)
}

func (b *Bot) resumeQuiz(ctx context.Context, chatID int64) {
	if b.running(chatID) != nil {
		return
	}
	session, err := b.deps.Launcher.Resume(ctx, snapshotKey(chatID))
	if err != nil {
		if !errors.Is(err, service.ErrNoSavedSession) {
			b.log.Error("resuming quiz", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		b.sendMessage(chatID, "There is no quiz to resume")
		return
	}
	b.run(ctx, chatID, b.selectionOf(ctx, session), session)
}

// selectionOf returns the selection a restored session was started from.
// Sessions saved without one fall back to the current question's category.
func (b *Bot) selectionOf(ctx context.Context, s *service.Session) service.Selection {
	sel := s.Selection()
	if sel.CategoryID == 0 {
		q, _ := s.Current()
		sel.CategoryID = q.CategoryID
	}
	if sel.Difficulty == "" {
		q, _ := s.Current()
		sel.Difficulty = q.Difficulty
	}
	if sel.CategoryName != "" {
		return sel
	}

	categories, err := b.deps.Launcher.Categories(ctx)
	if err != nil {
		b.log.Warn("listing categories", zap.Error(err))
	}
	for _, c := range categories {
		if c.ID == sel.CategoryID {
			sel.CategoryName = c.Name
		}
	}
	return sel
}

// run attaches a countdown to session and shows its current screen.
func (b *Bot) run(ctx context.Context, chatID int64, sel service.Selection, session *service.Session) {
	c := &chat{
		id:        chatID,
		selection: sel,
		guard:     service.NewExitGuard(b.deps.ExitWindow),
		limiter:   rate.NewLimiter(rate.Limit(b.deps.EditsPerSecond), 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.runner = service.NewRunner(session, &chatListener{bot: b, chat: c}, b.deps.RunnerOpts...)

	b.mu.Lock()
	b.chats[chatID] = c
	b.mu.Unlock()

	v := c.runner.Start()
	text, kb := questionScreen(c.selection, v, c.selected)
	msg, err := b.sendMarkdown(chatID, text, &kb)
	if err == nil {
		c.messageID = msg.MessageID
	}
	b.save(ctx, c)
}

func (b *Bot) running(chatID int64) *chat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chats[chatID]
}

func (b *Bot) selectOption(chatID int64, raw string) {
	c := b.running(chatID)
	if c == nil {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !service.Option(n).Valid() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner == nil {
		return
	}
	v := c.runner.View()
	if v.Phase != service.PhaseUnanswered {
		return
	}
	c.selected = service.Option(n)
	b.render(c, v)
}

func (b *Bot) confirmAnswer(ctx context.Context, chatID int64, callbackID string) {
	c := b.running(chatID)
	if c == nil {
		b.answerCallback(callbackID, "")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner == nil {
		b.answerCallback(callbackID, "")
		return
	}

	_, err := c.runner.Submit(c.selected)
	if errors.Is(err, service.ErrNoSelection) {
		b.answerCallback(callbackID, "Please choose an answer")
		return
	}
	b.answerCallback(callbackID, "")
	if err != nil {
		b.log.Warn("submitting answer", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	b.render(c, c.runner.View())
	b.save(ctx, c)
}

func (b *Bot) nextQuestion(ctx context.Context, chatID int64) {
	c := b.running(chatID)
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.runner == nil {
		c.mu.Unlock()
		return
	}
	v, ok, err := c.runner.Next()
	if err != nil {
		c.mu.Unlock()
		b.log.Debug("advancing", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if !ok {
		out := c.runner.Outcome()
		c.mu.Unlock()
		b.finish(ctx, c, out)
		return
	}
	defer c.mu.Unlock()

	c.selected = service.OptionNone
	text, kb := questionScreen(c.selection, v, c.selected)
	msg, err := b.sendMarkdown(chatID, text, &kb)
	if err == nil {
		c.messageID = msg.MessageID
	}
	b.save(ctx, c)
}

// handleExit implements the double tap: the first exit only warns, a second
// one within the window ends the quiz with the score so far.
func (b *Bot) handleExit(ctx context.Context, chatID int64, callbackID string) {
	c := b.running(chatID)
	if c == nil {
		b.answerCallback(callbackID, "")
		return
	}

	if !c.guard.Request() {
		const warning = "Press exit again to end the quiz"
		if callbackID != "" {
			b.answerCallback(callbackID, warning)
		} else {
			b.sendMessage(chatID, warning)
		}
		return
	}
	b.answerCallback(callbackID, "")

	c.mu.Lock()
	if c.runner == nil {
		c.mu.Unlock()
		return
	}
	out := c.runner.Abort()
	c.mu.Unlock()
	b.finish(ctx, c, out)
}

func (b *Bot) cancelRunning(ctx context.Context, chatID int64) {
	c := b.running(chatID)
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.runner != nil {
		c.runner.Close()
	}
	c.mu.Unlock()
	b.finish(ctx, c, service.Outcome{Status: service.OutcomeCancelled})
}

// finish hands the outcome to the results and forgets the chat's session.
func (b *Bot) finish(ctx context.Context, c *chat, out service.Outcome) {
	c.mu.Lock()
	c.runner = nil
	c.mu.Unlock()

	b.mu.Lock()
	if b.chats[c.id] == c {
		delete(b.chats, c.id)
	}
	b.mu.Unlock()

	if err := b.deps.Launcher.Discard(ctx, snapshotKey(c.id)); err != nil {
		b.log.Warn("discarding snapshot", zap.Int64("chat_id", c.id), zap.Error(err))
	}

	rec, err := b.deps.Results.Record(ctx, out)
	if err != nil {
		b.log.Error("recording result", zap.Int64("chat_id", c.id), zap.Error(err))
	}
	if !out.HasResult() {
		return
	}
	kb := resultKeyboard()
	b.sendMarkdown(c.id, resultText(out, rec), &kb)
}

// Shutdown stops every countdown and saves the running sessions.
func (b *Bot) Shutdown(ctx context.Context) {
	b.mu.Lock()
	chats := make([]*chat, 0, len(b.chats))
	for _, c := range b.chats {
		chats = append(chats, c)
	}
	b.mu.Unlock()

	for _, c := range chats {
		c.mu.Lock()
		if c.runner != nil {
			c.runner.Close()
			b.save(ctx, c)
		}
		c.mu.Unlock()
	}
	b.log.Info("sessions saved", zap.Int("count", len(chats)))
}

// save must be called with c.mu held.
func (b *Bot) save(ctx context.Context, c *chat) {
	if c.runner == nil {
		return
	}
	if err := b.deps.Launcher.Save(ctx, snapshotKey(c.id), c.runner.Snapshot()); err != nil {
		b.log.Warn("saving snapshot", zap.Int64("chat_id", c.id), zap.Error(err))
	}
}

// render edits the question message in place; c.mu must be held.
func (b *Bot) render(c *chat, v service.View) {
	if c.messageID == 0 {
		return
	}
	text, kb := questionScreen(c.selection, v, c.selected)
	edit := tgbotapi.NewEditMessageTextAndMarkup(c.id, c.messageID, text, kb)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.send.Send(edit); err != nil {
		// "message is not modified" is expected when nothing visible changed.
		b.log.Debug("editing message", zap.Int64("chat_id", c.id), zap.Error(err))
	}
}

type chatListener struct {
	bot  *Bot
	chat *chat
}

func (l *chatListener) OnTick(v service.View) {
	c := l.chat
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner == nil || !c.limiter.Allow() {
		return
	}
	l.bot.render(c, v)
}

func (l *chatListener) OnTimeout(_ service.Reveal, v service.View) {
	c := l.chat
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner == nil {
		return
	}
	l.bot.render(c, v)
	l.bot.save(context.Background(), c)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.send.Send(msg); err != nil {
		b.log.Error("sending message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := b.send.Send(msg)
	if err != nil {
		b.log.Error("sending message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return sent, err
}

func (b *Bot) answerCallback(id, text string) {
	if id == "" {
		return
	}
	if _, err := b.send.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.log.Warn("answering callback", zap.Error(err))
	}
}
