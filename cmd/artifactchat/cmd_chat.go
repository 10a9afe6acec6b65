package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/user/artifactchat/internal/delivery"
	"github.com/user/artifactchat/internal/gateway"
	"github.com/user/artifactchat/internal/render"
	"github.com/user/artifactchat/internal/runtime"
	"github.com/user/artifactchat/internal/types"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Int("width", 80, "render width in columns")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(loadConfig())
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		a.chat.Start(ctx)
		defer a.chat.Stop()

		r := newREPL(a.chat, a.registry, render.NewTerminal(a.cfg.Settings, width), a.cfg.Settings, a.cfg.DataDir, os.Stdout)
		return r.run(ctx, os.Stdin)
	},
}

const replHelp = `Commands:
  /search <query>      filter the transcript
  /close               close search
  /export              write the conversation to the data dir
  /bookmark <id>       toggle a bookmark
  /react <id> <kind>   add a reaction
  /attach <path>       stage a file for the next message
  /detach <n>          unstage file n
  /tools               list tools
  /quit                exit`

// repl is the terminal frontend. Output is shared with the delivery
// handler so writes are serialized.
type repl struct {
	chat     *gateway.Chat
	registry *runtime.Registry
	term     *render.Terminal
	settings render.Settings
	dataDir  string

	mu  sync.Mutex
	out io.Writer
}

func newREPL(chat *gateway.Chat, registry *runtime.Registry, term *render.Terminal, settings render.Settings, dataDir string, out io.Writer) *repl {
	return &repl{
		chat:     chat,
		registry: registry,
		term:     term,
		settings: settings,
		dataDir:  dataDir,
		out:      out,
	}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// onUpdate prints replies as they land.
func (r *repl) onUpdate(u delivery.Update) error {
	if u.Type != delivery.UpdateAppended || u.Message.Sender != types.SenderAssistant {
		return nil
	}
	bell := ""
	if r.settings.EnableSounds {
		bell = "\a"
	}
	r.printf("%s%s\n", bell, r.term.Message(u.Message))
	return nil
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	r.chat.Updates().Register("terminal", r.onUpdate)
	defer r.chat.Updates().Unregister("terminal")

	for _, m := range r.chat.Visible() {
		r.printf("%s\n", r.term.Message(m))
	}
	r.printf("Type a message, or /help.\n")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if quit := r.handleLine(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// handleLine runs one line of input and reports whether to exit.
func (r *repl) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	args := strings.Fields(rest)
	switch name {
	case "quit", "exit":
		return true
	case "help":
		r.printf("%s\n", replHelp)
	case "search":
		r.chat.OpenSearch()
		r.chat.SetQuery(strings.TrimSpace(rest))
		r.printTranscript()
	case "close":
		r.chat.CloseSearch()
		r.printTranscript()
	case "export":
		path, err := r.chat.ExportFile(r.dataDir)
		if err != nil {
			r.printf("Export failed: %v\n", err)
			return false
		}
		r.printf("Exported to %s\n", path)
	case "bookmark":
		id, ok := r.resolve(args)
		if ok {
			r.chat.ToggleBookmark(id)
			m, _ := r.chat.Get(id)
			r.printf("%s\n", r.term.Message(m))
		}
	case "react":
		if len(args) < 2 {
			r.printf("Usage: /react <id> <kind>\n")
			return false
		}
		id, ok := r.resolve(args[:1])
		if ok {
			r.chat.React(id, args[1])
			m, _ := r.chat.Get(id)
			r.printf("%s\n", r.term.Message(m))
		}
	case "attach":
		if rest == "" {
			r.printf("Usage: /attach <path>\n")
			return false
		}
		att, err := readAttachment(strings.TrimSpace(rest))
		if err != nil {
			r.printf("Attach failed: %v\n", err)
			return false
		}
		r.chat.Attach(att)
		r.printStaged()
	case "detach":
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || !r.chat.Unstage(n-1) {
			r.printf("Usage: /detach <n> where n is a staged file number\n")
			return false
		}
		r.printStaged()
	case "tools":
		for _, t := range r.registry.Catalog() {
			state := "active"
			if !t.Active {
				state = "inactive"
			}
			r.printf("%-16s %-8s %s\n", t.Title, state, t.Description)
		}
	default:
		r.printf("Unknown command /%s. Try /help.\n", name)
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	id, err := r.chat.Send(ctx, text)
	switch {
	case errors.Is(err, gateway.ErrEmptyMessage):
	case errors.Is(err, gateway.ErrReplyPending):
		r.printf("Still waiting on the previous reply.\n")
	case err != nil && id == "":
		r.printf("Send failed: %v\n", err)
	default:
		if m, ok := r.chat.Get(id); ok {
			r.printf("%s\n", r.term.Message(m))
		}
	}
}

func (r *repl) resolve(args []string) (types.MessageID, bool) {
	if len(args) == 0 {
		r.printf("Which message? Pass an id or its suffix.\n")
		return "", false
	}
	id, ok := r.chat.Resolve(args[0])
	if !ok {
		r.printf("No single message matches %s\n", args[0])
	}
	return id, ok
}

func (r *repl) printTranscript() {
	visible := r.chat.Visible()
	if r.chat.SearchOpen() {
		r.printf("Search %q: %d of %d messages\n", r.chat.Query(), len(visible), len(r.chat.Snapshot()))
	}
	for _, m := range visible {
		r.printf("%s\n", r.term.Message(m))
	}
}

func (r *repl) printStaged() {
	staged := r.chat.Staged()
	if len(staged) == 0 {
		r.printf("No files staged.\n")
		return
	}
	for i, f := range staged {
		r.printf("  %d. %s (%d bytes)\n", i+1, f.Name, f.Size)
	}
}

func readAttachment(path string) (types.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Attachment{}, fmt.Errorf("read %s: %w", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return types.Attachment{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}
