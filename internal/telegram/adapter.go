package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/artifactchat/internal/delivery"
	"github.com/user/artifactchat/internal/export"
	"github.com/user/artifactchat/internal/gateway"
	"github.com/user/artifactchat/internal/runtime"
	"github.com/user/artifactchat/internal/types"
)

const maxTelegramMessage = 4096

// DeliveryName is the key the adapter registers under in delivery.Registry.
const DeliveryName = "telegram"

const helpText = "Available: /start, /search <query>, /close, /export, /bookmark <id>, /react <id> <kind>, /tools"

// sender is the part of tgbotapi.BotAPI the adapter writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Adapter bridges one Telegram chat to the conversation.
type Adapter struct {
	bot    *tgbotapi.BotAPI
	out    sender
	chat   *gateway.Chat
	chatID int64
	tools  []runtime.ToolInfo
	now    func() time.Time
}

// New creates a Telegram adapter restricted to chatID.
func New(token string, chatID int64, chat *gateway.Chat, tools []runtime.ToolInfo) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	a := newAdapter(bot, chatID, chat, tools)
	a.bot = bot
	return a, nil
}

func newAdapter(out sender, chatID int64, chat *gateway.Chat, tools []runtime.ToolInfo) *Adapter {
	return &Adapter{
		out:    out,
		chat:   chat,
		chatID: chatID,
		tools:  tools,
		now:    time.Now,
	}
}

// Start registers for assistant replies and long-polls for updates until
// ctx is done.
func (a *Adapter) Start(ctx context.Context) {
	a.chat.Updates().Register(DeliveryName, a.deliver)
	defer a.chat.Updates().Unregister(DeliveryName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

// deliver forwards new assistant messages to the chat.
func (a *Adapter) deliver(u delivery.Update) error {
	if u.Type != delivery.UpdateAppended || u.Message.Sender != types.SenderAssistant {
		return nil
	}
	return a.sendText(formatMessage(u.Message))
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.Chat.ID != a.chatID {
		slog.Debug("ignoring telegram message from other chat", "chat_id", chatIDOf(msg))
		return
	}
	if msg.IsCommand() {
		a.handleCommand(msg)
		return
	}

	text := msg.Text
	var files []types.Attachment
	if msg.Document != nil {
		text = msg.Caption
		files = append(files, types.Attachment{
			Name:     msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Size:     int64(msg.Document.FileSize),
		})
	}

	id, err := a.chat.SendFiles(ctx, text, files...)
	switch {
	case err == nil:
	case errors.Is(err, gateway.ErrEmptyMessage):
	case errors.Is(err, gateway.ErrReplyPending):
		a.reply("Still working on the previous reply, try again in a moment.")
	case id != "":
		// The failure notice reaches the chat through Deliver.
		slog.Error("telegram reply not scheduled", "message_id", string(id), "error", err)
	default:
		slog.Error("telegram send failed", "error", err)
		a.reply("Sorry, I encountered an error processing your message.")
	}
}

func (a *Adapter) handleCommand(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		a.reply("Hello! Send me a message and I'll reply, sometimes with artifacts. " + helpText)

	case "search":
		a.chat.OpenSearch()
		a.chat.SetQuery(strings.Join(args, " "))
		a.reply(formatList(a.chat.Visible()))

	case "close":
		a.chat.CloseSearch()
		a.reply("Search closed.")

	case "export":
		var buf bytes.Buffer
		if err := a.chat.Export(&buf); err != nil {
			slog.Error("telegram export failed", "error", err)
			a.reply("Export failed.")
			return
		}
		doc := tgbotapi.NewDocument(a.chatID, tgbotapi.FileBytes{
			Name:  export.FileName(a.now()),
			Bytes: buf.Bytes(),
		})
		if _, err := a.out.Send(doc); err != nil {
			slog.Error("telegram document upload failed", "error", err)
		}

	case "bookmark":
		id, ok := a.resolve(args)
		if !ok {
			return
		}
		a.chat.ToggleBookmark(id)
		m, _ := a.chat.Get(id)
		a.reply(fmt.Sprintf("Bookmark on %s: %v", id, m.Bookmarked))

	case "react":
		if len(args) < 2 {
			a.reply("Usage: /react <id> <kind>")
			return
		}
		id, ok := a.resolve(args[:1])
		if !ok {
			return
		}
		a.chat.React(id, args[1])
		a.reply(fmt.Sprintf("Reacted %s to %s", args[1], id))

	case "tools":
		var sb strings.Builder
		for _, t := range a.tools {
			state := "active"
			if !t.Active {
				state = "inactive"
			}
			fmt.Fprintf(&sb, "%s (%s): %s\n", t.Title, state, t.Description)
		}
		if sb.Len() == 0 {
			sb.WriteString("No tools registered.")
		}
		a.reply(sb.String())

	default:
		a.reply("Unknown command. " + helpText)
	}
}

func (a *Adapter) resolve(args []string) (types.MessageID, bool) {
	if len(args) == 0 {
		a.reply("Which message? Pass an id or its suffix.")
		return "", false
	}
	id, ok := a.chat.Resolve(args[0])
	if !ok {
		a.reply("No single message matches " + args[0])
		return "", false
	}
	return id, true
}

func (a *Adapter) reply(text string) {
	if err := a.sendText(text); err != nil {
		slog.Error("telegram send message failed", "error", err)
	}
}

func (a *Adapter) sendText(text string) error {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(a.chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := a.out.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.out.Send(msg); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}

// formatMessage renders a message as Telegram markdown.
func formatMessage(m types.Message) string {
	var sb strings.Builder
	sb.WriteString(m.Content)
	for _, art := range m.Artifacts {
		fmt.Fprintf(&sb, "\n\n*%s* (%s)\n", art.Title, art.Type)
		switch art.Type {
		case types.ArtifactCode, types.ArtifactComponent:
			fmt.Fprintf(&sb, "```%s\n%s\n```", art.Language, art.Content)
		case types.ArtifactChart:
			fmt.Fprintf(&sb, "`%s`", string(art.Data))
		default:
			sb.WriteString(art.Content)
		}
	}
	return sb.String()
}

func formatList(msgs []types.Message) string {
	if len(msgs) == 0 {
		return "No messages match."
	}
	var sb strings.Builder
	for _, m := range msgs {
		content := m.Content
		if utf8.RuneCountInString(content) > 80 {
			content = string([]rune(content)[:80]) + "..."
		}
		fmt.Fprintf(&sb, "#%s %s: %s\n", shortID(m.ID), m.Sender, content)
	}
	return sb.String()
}

func shortID(id types.MessageID) string {
	s := string(id)
	if len(s) > 8 {
		return s[len(s)-8:]
	}
	return s
}

// splitMessage cuts text into Telegram-sized parts without breaking runes.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := min(maxTelegramMessage, len(text))
		for end < len(text) && end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func chatIDOf(msg *tgbotapi.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}
