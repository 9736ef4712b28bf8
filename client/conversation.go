package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"hackmate/bus"
	"hackmate/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HistoryLimit bounds the prior messages sent with a turn.
	HistoryLimit = 20
	// TranscriptLimit bounds a transcript reload.
	TranscriptLimit = 100

	RejectMessage      = "No problem, I won't do that."
	unreachableMessage = "I couldn't reach the assistant. Please try again."
)

var (
	// ErrInputDisabled is returned while a reply is streaming or a
	// confirmation is open.
	ErrInputDisabled   = errors.New("input is disabled until the current action finishes")
	ErrNoPendingAction = errors.New("no action is awaiting confirmation")
	ErrEmptyMessage    = errors.New("message is empty")
)

// API is the server surface a conversation needs. *Client implements it.
type API interface {
	Send(ctx context.Context, req model.AssistantRequest, onFragment func(string)) (model.AssistantResponse, error)
	Messages(ctx context.Context, limit int) ([]model.Message, error)
	AppendMessage(ctx context.Context, msg model.Message) (model.Message, error)
}

// Snapshot is a copy of the conversation state for rendering.
type Snapshot struct {
	Messages  []model.Message
	Pending   *model.PendingAction
	Queue     model.TaskQueue
	Streaming bool
	Executing bool
}

// InputEnabled reports whether free text may be submitted.
func (s Snapshot) InputEnabled() bool {
	return !s.Streaming && !s.Executing && s.Pending == nil
}

// Conversation owns the client-side transcript and the pending action. At
// most one stream or confirmation is open at a time.
type Conversation struct {
	api       API
	bus       *bus.Bus
	runner    *TaskRunner
	contextID string
	now       func() time.Time
	log       *zap.Logger

	mu        sync.Mutex
	messages  []model.Message
	pending   *model.PendingAction
	queue     model.TaskQueue
	streaming bool
	closed    bool
	onChange  func(Snapshot)
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithBus publishes completed actions to b.
func WithBus(b *bus.Bus) ConversationOption {
	return func(c *Conversation) { c.bus = b }
}

// WithStepDelay sets the pause between queued steps.
func WithStepDelay(d time.Duration) ConversationOption {
	return func(c *Conversation) { c.runner.delay = d }
}

// WithContextID overrides the generated context id sent with each request.
func WithContextID(id string) ConversationOption {
	return func(c *Conversation) { c.contextID = id }
}

func WithConversationLogger(log *zap.Logger) ConversationOption {
	return func(c *Conversation) {
		if log != nil {
			c.log = log
		}
	}
}

// NewConversation returns an empty conversation backed by api. Call Load to
// restore the stored transcript.
func NewConversation(api API, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		api:       api,
		contextID: uuid.New().String(),
		now:       time.Now,
		log:       zap.NewNop(),
	}
	c.runner = &TaskRunner{conv: c, delay: DefaultStepDelay}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	c.log = c.log.Named("conversation")
	c.runner.log = c.log.Named("runner")
	return c
}

// OnChange registers fn to receive a snapshot after every state change. It
// is called without the conversation lock held.
func (c *Conversation) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Conversation) Runner() *TaskRunner { return c.runner }

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	s := Snapshot{
		Messages:  append([]model.Message(nil), c.messages...),
		Queue:     append(model.TaskQueue(nil), c.queue...),
		Streaming: c.streaming,
		Executing: c.runner.Executing(),
	}
	if c.pending != nil {
		p := *c.pending
		s.Pending = &p
	}
	return s
}

func (c *Conversation) changed() {
	c.mu.Lock()
	if c.closed || c.onChange == nil {
		c.mu.Unlock()
		return
	}
	fn, snap := c.onChange, c.snapshotLocked()
	c.mu.Unlock()
	fn(snap)
}

// Close stops change notifications. In-flight calls still complete.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conversation) newMessage(role, content string) model.Message {
	return model.Message{ID: uuid.New().String(), Role: role, Content: content, CreatedAt: c.now().UTC()}
}

// persist saves msg. Failures are logged; the message stays in the
// in-memory transcript either way.
func (c *Conversation) persist(ctx context.Context, msg model.Message) {
	if _, err := c.api.AppendMessage(ctx, msg); err != nil {
		c.log.Warn("failed to persist message", zap.String("id", msg.ID), zap.Error(err))
	}
}

// say appends an assistant message, persisting it when asked.
func (c *Conversation) say(ctx context.Context, content string, persist bool) {
	msg := c.newMessage(model.RoleAssistant, content)
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	if persist {
		c.persist(ctx, msg)
	}
	c.changed()
}

// historyLocked returns the last HistoryLimit non-empty user and assistant
// messages.
func (c *Conversation) historyLocked() []model.Message {
	out := make([]model.Message, 0, HistoryLimit)
	for i := len(c.messages) - 1; i >= 0 && len(out) < HistoryLimit; i-- {
		m := c.messages[i]
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		out = append(out, model.Message{Role: m.Role, Content: m.Content})
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Load replaces the transcript with the newest stored messages.
func (c *Conversation) Load(ctx context.Context) error {
	msgs, err := c.api.Messages(ctx, TranscriptLimit)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.messages = msgs
	c.mu.Unlock()
	c.changed()
	return nil
}

// Submit sends one user message. Plain replies stream into a single
// assistant message; a proposed write leaves the conversation waiting for
// Confirm or Reject.
func (c *Conversation) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.streaming || c.pending != nil || c.runner.Executing() {
		c.mu.Unlock()
		return ErrInputDisabled
	}
	history := c.historyLocked()
	userMsg := c.newMessage(model.RoleUser, text)
	c.messages = append(c.messages, userMsg)
	c.streaming = true
	c.mu.Unlock()
	c.changed()

	c.persist(ctx, userMsg)

	replyIdx := -1
	resp, err := c.api.Send(ctx, model.AssistantRequest{
		Message:             text,
		ConversationHistory: history,
		CurrentContextID:    c.contextID,
		Stream:              true,
	}, func(fragment string) {
		c.mu.Lock()
		if replyIdx < 0 {
			c.messages = append(c.messages, c.newMessage(model.RoleAssistant, ""))
			replyIdx = len(c.messages) - 1
		}
		c.messages[replyIdx].Content += fragment
		c.mu.Unlock()
		c.changed()
	})

	c.mu.Lock()
	c.streaming = false
	var streamed *model.Message
	if replyIdx >= 0 {
		m := c.messages[replyIdx]
		streamed = &m
	}
	c.mu.Unlock()

	switch {
	case streamed != nil:
		// A truncated stream keeps its partial text as the final reply.
		c.persist(ctx, *streamed)
		if resp.Error != "" {
			c.say(ctx, resp.Error, true)
		} else {
			c.changed()
		}
	case err != nil:
		notice := resp.Error
		if notice == "" {
			notice = unreachableMessage
		}
		c.say(ctx, notice, true)
	case resp.Error != "":
		c.say(ctx, resp.Error, true)
	default:
		if resp.PendingConfirmation != nil {
			p := *resp.PendingConfirmation
			c.mu.Lock()
			c.pending = &p
			c.queue = resp.RemainingTasks
			c.mu.Unlock()
		}
		if resp.Response != "" {
			c.say(ctx, resp.Response, true)
		} else {
			c.changed()
		}
	}

	if err != nil {
		c.log.Warn("assistant turn failed", zap.Error(err))
	}
	return err
}

// Confirm approves the pending action and runs it, together with any queued
// steps, to completion.
func (c *Conversation) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNoPendingAction
	}
	// The runner is claimed under mu so a concurrent Reject sees it running.
	if !c.runner.executing.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return ErrRunnerBusy
	}
	action, queue := *c.pending, append(model.TaskQueue(nil), c.queue...)
	c.mu.Unlock()

	_, err := c.runner.run(ctx, action, queue)
	return err
}

// Reject discards the pending action and its queue without contacting the
// assistant.
func (c *Conversation) Reject(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil || c.runner.Executing() {
		c.mu.Unlock()
		return ErrNoPendingAction
	}
	c.pending, c.queue = nil, nil
	c.mu.Unlock()

	c.say(ctx, RejectMessage, true)
	return nil
}

func (c *Conversation) setPending(p *model.PendingAction, queue model.TaskQueue) {
	c.mu.Lock()
	c.pending, c.queue = p, queue
	c.mu.Unlock()
	c.changed()
}

func (c *Conversation) publish(resp model.AssistantResponse) {
	if c.bus == nil || resp.ActionCompleted == "" {
		return
	}
	var payload any
	if resp.Result != nil {
		payload = resp.Result.Payload
	}
	c.bus.Publish(bus.Topic(resp.ActionCompleted), payload)
}
