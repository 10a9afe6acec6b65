package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/user/artifactchat/internal/delivery"
	"github.com/user/artifactchat/internal/export"
	"github.com/user/artifactchat/internal/metrics"
	"github.com/user/artifactchat/internal/search"
	"github.com/user/artifactchat/internal/types"
)

var (
	// ErrEmptyMessage is returned by Send for blank input with no attachments.
	ErrEmptyMessage = errors.New("empty message")
	// ErrReplyPending is returned by Send under PolicyReject while a reply
	// is outstanding.
	ErrReplyPending = errors.New("reply already pending")
)

// FailureText is the content of the assistant message that reports a
// failed reply.
const FailureText = "Sorry, something went wrong processing your message."

// Policy decides what Send does while a reply is still pending.
type Policy string

const (
	// PolicyQueue answers every message in send order.
	PolicyQueue Policy = "queue"
	// PolicyReject refuses new messages until the pending reply lands.
	PolicyReject Policy = "reject"
	// PolicyReplace cancels the pending reply in favour of the new message.
	PolicyReplace Policy = "replace"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyQueue, PolicyReject, PolicyReplace:
		return p, nil
	case "":
		return PolicyQueue, nil
	}
	return "", fmt.Errorf("unknown pending policy %q", s)
}

// Chat is the conversation's command surface. Frontends (terminal, HTTP,
// Telegram) drive it; it owns the reply lane and publishes every change.
type Chat struct {
	store    types.MessageStore
	provider types.ResponseProvider
	queue    *Queue
	retry    *RetryPolicy
	policy   Policy
	updates  *delivery.Registry
	metrics  *metrics.Metrics
	search   search.Session
	now      func() time.Time

	sendMu sync.Mutex
	mu     sync.Mutex
	staged []types.Attachment
}

// Option configures a Chat.
type Option func(*Chat)

// WithPolicy sets the pending-reply policy.
func WithPolicy(p Policy) Option {
	return func(c *Chat) { c.policy = p }
}

// WithRetryPolicy sets the retry policy around provider calls.
func WithRetryPolicy(p *RetryPolicy) Option {
	return func(c *Chat) { c.retry = p }
}

// WithDelivery publishes updates to r instead of a private registry.
func WithDelivery(r *delivery.Registry) Option {
	return func(c *Chat) { c.updates = r }
}

// WithMetrics records counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chat) { c.metrics = m }
}

// New creates a Chat over store answering through provider.
func New(store types.MessageStore, provider types.ResponseProvider, opts ...Option) *Chat {
	c := &Chat{
		store:    store,
		provider: provider,
		queue:    NewQueue(1),
		retry:    DefaultRetryPolicy(),
		policy:   PolicyQueue,
		updates:  delivery.NewRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue.SetProcessor(c.process)
	return c
}

// Start launches the reply lane.
func (c *Chat) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop cancels pending replies and waits for the lane to exit.
func (c *Chat) Stop() {
	c.queue.Stop()
}

// Updates returns the registry that receives every conversation change.
func (c *Chat) Updates() *delivery.Registry {
	return c.updates
}

func (c *Chat) Policy() Policy {
	return c.policy
}

// Attach stages files for the next sent message.
func (c *Chat) Attach(files ...types.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = append(c.staged, files...)
}

// Staged returns the files waiting for the next message.
func (c *Chat) Staged() []types.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Attachment(nil), c.staged...)
}

// Unstage drops the staged file at index i.
func (c *Chat) Unstage(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.staged) {
		return false
	}
	c.staged = append(c.staged[:i], c.staged[i+1:]...)
	return true
}

func (c *Chat) takeStaged() []types.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	files := c.staged
	c.staged = nil
	return files
}

// Send appends the user's message, carrying any staged files, and
// schedules the assistant reply. The user message is in the store when Send
// returns; the reply lands later.
func (c *Chat) Send(ctx context.Context, text string) (types.MessageID, error) {
	return c.SendFiles(ctx, text)
}

// SendFiles is Send with extra files attached after the staged ones. A
// rejected send leaves the staged files in place.
func (c *Chat) SendFiles(ctx context.Context, text string, extra ...types.Attachment) (types.MessageID, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if strings.TrimSpace(text) == "" && len(c.Staged())+len(extra) == 0 {
		return "", ErrEmptyMessage
	}
	if c.policy == PolicyReject && c.queue.Pending() > 0 {
		c.metrics.ReplyFinished(metrics.OutcomeRejected, 0)
		return "", ErrReplyPending
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	files := append(c.takeStaged(), extra...)
	content := text
	if strings.TrimSpace(content) == "" {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		content = "Attached: " + strings.Join(names, ", ")
	}

	msg := types.NewMessage(types.SenderUser, content, nil, "")
	msg.Timestamp = c.now()
	msg.Attachments = files
	id := c.store.Append(msg)
	c.published(delivery.UpdateAppended, id)

	if c.policy == PolicyReplace {
		if n := c.queue.CancelAll(); n > 0 {
			slog.Info("superseding pending reply", "message_id", string(id), "cancelled", n)
		}
	}

	run := NewRun(types.ReplyRequest{
		Utterance:   content,
		MessageID:   id,
		History:     c.store.Snapshot(),
		Attachments: files,
	})
	if err := c.queue.Enqueue(run); err != nil {
		// The user turn is already stored, so it still gets an answer.
		c.metrics.ReplyFinished(metrics.OutcomeFailed, 0)
		slog.Error("reply not scheduled", "message_id", string(id), "error", err)
		c.appendFailure(err)
		return id, fmt.Errorf("schedule reply: %w", err)
	}
	slog.Debug("reply scheduled", "message_id", string(id), "run_id", string(run.ID))
	return id, nil
}

// process is the queue processor: one provider call per run, with retries.
func (c *Chat) process(run *Run) {
	run.start()
	logger := slog.With("run_id", string(run.ID), "message_id", string(run.Request.MessageID))

	var reply *types.Message
	err := c.retry.Execute(run.ctx, func(ctx context.Context) error {
		run.Attempts++
		m, err := c.provider.Respond(ctx, run.Request)
		if err != nil {
			if !run.Cancelled() {
				logger.Warn("provider call failed", "attempt", run.Attempts, "error", err)
			}
			return err
		}
		if m == nil {
			return fmt.Errorf("provider returned no message: %w", ErrPermanent)
		}
		reply = m
		return nil
	})
	elapsed := time.Since(*run.StartedAt)

	if run.Cancelled() {
		run.finish(RunStatusCancelled, run.ctx.Err())
		c.metrics.ReplyFinished(metrics.OutcomeCancelled, elapsed)
		logger.Info("reply dropped", "reason", "cancelled")
		return
	}

	if err != nil {
		run.finish(RunStatusFailed, err)
		c.metrics.ReplyFinished(metrics.OutcomeFailed, elapsed)
		logger.Error("reply failed", "attempts", run.Attempts, "error", err)
		c.appendFailure(err)
		return
	}

	run.finish(RunStatusComplete, nil)
	c.metrics.ReplyFinished(metrics.OutcomeOK, elapsed)
	reply.Sender = types.SenderAssistant
	if reply.Timestamp.IsZero() {
		reply.Timestamp = c.now()
	}
	id := c.store.Append(*reply)
	logger.Info("reply appended", "reply_id", string(id), "kind", string(reply.Kind), "artifacts", len(reply.Artifacts))
	c.published(delivery.UpdateAppended, id)
}

// appendFailure stores the assistant turn shown when no reply can be produced.
func (c *Chat) appendFailure(err error) {
	failure := types.NewMessage(types.SenderAssistant, FailureText, nil, "")
	failure.Timestamp = c.now()
	failure.Error = err.Error()
	c.published(delivery.UpdateAppended, c.store.Append(failure))
}

// published delivers the stored copy of id to every frontend.
func (c *Chat) published(t delivery.UpdateType, id types.MessageID) {
	msg, ok := c.store.Get(id)
	if !ok {
		return
	}
	if t == delivery.UpdateAppended {
		c.metrics.MessageAppended(string(msg.Sender))
	}
	if err := c.updates.Deliver(delivery.Update{Type: t, Message: msg}); err != nil {
		slog.Warn("delivery failed", "message_id", string(id), "error", err)
	}
}

// ToggleBookmark flips the bookmark on id. It reports false, changing
// nothing, when id is unknown.
func (c *Chat) ToggleBookmark(id types.MessageID) bool {
	if !c.store.ToggleBookmark(id) {
		slog.Debug("bookmark target not found", "message_id", string(id))
		return false
	}
	c.published(delivery.UpdateUpdated, id)
	return true
}

// React adds one reaction of kind to id. It reports false, changing
// nothing, when id is unknown or kind is blank.
func (c *Chat) React(id types.MessageID, kind string) bool {
	kind = strings.TrimSpace(kind)
	if kind == "" || !c.store.AddReaction(id, kind) {
		slog.Debug("reaction target not found", "message_id", string(id), "kind", kind)
		return false
	}
	c.published(delivery.UpdateUpdated, id)
	return true
}

// Resolve maps a user-typed reference to a message id. It accepts the full
// id or a unique suffix, with or without a leading '#'.
func (c *Chat) Resolve(ref string) (types.MessageID, bool) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return "", false
	}
	if _, ok := c.store.Get(types.MessageID(ref)); ok {
		return types.MessageID(ref), true
	}
	var match types.MessageID
	for _, m := range c.store.Snapshot() {
		if strings.HasSuffix(string(m.ID), ref) {
			if match != "" && match != m.ID {
				return "", false
			}
			match = m.ID
		}
	}
	return match, match != ""
}

func (c *Chat) OpenSearch()       { c.search.Open() }
func (c *Chat) SetQuery(q string) { c.search.SetQuery(q) }
func (c *Chat) CloseSearch()      { c.search.Close() }
func (c *Chat) SearchOpen() bool  { return c.search.IsOpen() }
func (c *Chat) Query() string     { return c.search.Query() }

// Get returns a copy of message id.
func (c *Chat) Get(id types.MessageID) (types.Message, bool) {
	return c.store.Get(id)
}

// Snapshot returns a deep copy of every message in order.
func (c *Chat) Snapshot() []types.Message {
	return c.store.Snapshot()
}

// Visible returns the messages the search bar currently lets through.
func (c *Chat) Visible() []types.Message {
	return c.search.Apply(c.store.Snapshot())
}

// Pending returns the number of replies queued or in flight.
func (c *Chat) Pending() int {
	return c.queue.Pending()
}

// WaitIdle blocks until no reply is pending or the timeout expires.
func (c *Chat) WaitIdle(timeout time.Duration) bool {
	return c.queue.WaitIdle(timeout)
}

// Export writes the whole conversation, not just the visible messages, to w.
func (c *Chat) Export(w io.Writer) error {
	err := export.Encode(w, export.Build(c.store.Snapshot(), c.now()))
	c.metrics.Exported(err)
	if err != nil {
		slog.Error("export failed", "error", err)
	}
	return err
}

// ExportFile writes the export into dir and returns its path.
func (c *Chat) ExportFile(dir string) (string, error) {
	now := c.now()
	path, err := export.WriteFile(dir, export.Build(c.store.Snapshot(), now), now)
	c.metrics.Exported(err)
	if err != nil {
		slog.Error("export failed", "dir", dir, "error", err)
		return "", err
	}
	slog.Info("conversation exported", "path", path)
	return path, nil
}
