package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"todo-scheduler/internal/clock"
	"todo-scheduler/internal/model"
	"todo-scheduler/internal/repository"
	"todo-scheduler/internal/service"
)

const (
	iconReminder  = "🔔"
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconRecurring = "♻️"
)

// sender is the part of the Telegram API used to push messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot delivers reminders to Telegram chats and serves a few commands so
// owners can register and complete tasks from the chat.
type Bot struct {
	api     *tgbotapi.BotAPI
	send    sender
	users   *repository.UserRepository
	taskSvc *service.TaskService
	clock   clock.Clock
	logger  *zap.Logger
}

func New(token string, users *repository.UserRepository, taskSvc *service.TaskService, clk clock.Clock, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, users, taskSvc, clk, logger)
	b.api = api
	b.logger.Info("bot authorized", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(send sender, users *repository.UserRepository, taskSvc *service.TaskService, clk clock.Clock, logger *zap.Logger) *Bot {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		send:    send,
		users:   users,
		taskSvc: taskSvc,
		clock:   clk,
		logger:  logger.Named("bot"),
	}
}

// Notify sends a due reminder to the owner's chat.
func (b *Bot) Notify(ctx context.Context, reminder model.Reminder, task model.Task) error {
	user, err := b.users.FindByID(ctx, reminder.OwnerID)
	if err != nil {
		return fmt.Errorf("resolve chat for owner %s: %w", reminder.OwnerID, err)
	}
	if err := b.sendText(user.TelegramID, formatReminder(task, b.clock.Now())); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot started without telegram api")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() || msg.From == nil {
			continue
		}
		if err := b.handleMessage(ctx, msg); err != nil {
			b.logger.Error("handle message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help to see what I can do.")
	}

	b.logger.Debug("command", zap.Int64("from", msg.From.ID), zap.String("command", msg.Command()))

	user, err := b.users.UpsertFromTelegram(ctx, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName)
	if err != nil {
		return err
	}

	switch msg.Command() {
	case "start":
		return b.handleStart(msg, user)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "tasks":
		return b.handleListTasks(ctx, msg.Chat.ID, user)
	case "done":
		return b.handleDone(ctx, msg, user)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /tasks - open tasks with their IDs\n" +
	"• /done &lt;id&gt; - complete a task; recurring tasks get their next occurrence\n" +
	"• /help - this message"

func (b *Bot) handleStart(msg *tgbotapi.Message, user *model.User) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\nReminders for owner <code>%s</code> will arrive in this chat.\n\n%s",
		escape(name), escape(user.ID), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListTasks(ctx, user.ID, repository.TaskFilter{Status: repository.StatusPending, Limit: 50})
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No open tasks 🎉")
	}

	now := b.clock.Now()
	var sb strings.Builder
	sb.WriteString("📋 <b>Open tasks</b>\n")
	for _, task := range tasks {
		sb.WriteString(formatTask(task, now))
	}
	return b.sendText(chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		return b.sendText(msg.Chat.ID, "Tell me which task: /done &lt;id&gt;")
	}

	result, err := b.taskSvc.CompleteTask(ctx, user.ID, taskID)
	switch {
	case err == nil:
	case model.IsDomainError(err, model.ErrCodeNotFound):
		return b.sendText(msg.Chat.ID, "Task not found.")
	case model.IsDomainError(err, model.ErrCodeConflict):
		return b.sendText(msg.Chat.ID, "That task is already done.")
	default:
		return err
	}

	text := fmt.Sprintf("✅ Done: %s", escape(result.Task.Title))
	if result.Successor != nil && result.Successor.DueAt != nil {
		text += fmt.Sprintf("\n%s Next one due %s (<code>%s</code>)",
			iconRecurring, result.Successor.DueAt.Format("2006-01-02 15:04 MST"), result.Successor.ID)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.send.Send(msg)
	return err
}

func formatReminder(task model.Task, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>%s</b>", iconReminder, escape(strings.TrimSpace(task.Title))))
	if task.DueAt != nil {
		due := task.DueAt.In(now.Location())
		if now.After(due) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ was due %s", due.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, in %s", due.Format("2006-01-02 15:04"), humanize(due.Sub(now))))
		}
	}
	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", escape(strings.TrimSpace(task.Description))))
	}
	if task.Recurrence != nil {
		sb.WriteString(fmt.Sprintf("\n   %s %s", iconRecurring, escape(task.Recurrence.String())))
	}
	sb.WriteString(fmt.Sprintf("\n   /done %s", task.ID))
	return sb.String()
}

func formatTask(task model.Task, now time.Time) string {
	icon := iconDefault
	if task.DueAt != nil {
		switch due := task.DueAt.In(now.Location()); {
		case now.After(due):
			icon = iconOverdue
		case due.Sub(now) <= 48*time.Hour:
			icon = iconDue
		}
	}
	if task.Recurrence != nil {
		icon += iconRecurring
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s <code>%s</code>", icon, escape(strings.TrimSpace(task.Title)), task.ID))
	if task.DueAt != nil {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", task.DueAt.In(now.Location()).Format("2006-01-02 15:04")))
	}
	if task.Priority != "" && task.Priority != model.PriorityNone {
		sb.WriteString(fmt.Sprintf(" · %s", task.Priority))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func humanize(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%d min", int(d.Minutes()))
	}
	hours := int(d.Hours())
	if mins := int(d.Minutes()) % 60; mins != 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dh", hours)
}

func escape(s string) string {
	return html.EscapeString(s)
}
