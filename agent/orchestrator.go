// Package agent runs one assistant turn: guardrail, model, tool selection,
// confirmation gating and summarising.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hackmate/guardrail"
	"hackmate/model"
	"hackmate/storage"
	"hackmate/tools"

	"go.uber.org/zap"
)

const DefaultHistoryLimit = 20

const (
	fallbackReply = "Sorry, I didn't catch that. Could you rephrase?"
	failureReply  = "Something went wrong. Please try again."
)

// TokenSink receives plain-reply fragments as they stream. Returning an
// error aborts the model call.
type TokenSink func(fragment string) error

// Reply is the outcome of a turn. When Streamed is true the response text
// has already been delivered through the TokenSink.
type Reply struct {
	Response model.AssistantResponse
	Streamed bool
}

// Orchestrator runs assistant turns against a model provider and the tool
// executor. It keeps no state between turns.
type Orchestrator struct {
	provider     model.Provider
	exec         *tools.Executor
	guard        *guardrail.Filter
	historyLimit int
	now          func() time.Time
	log          *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHistoryLimit bounds how many prior messages reach the model.
func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

// WithLogger sets the logger; transitions are logged at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New returns an Orchestrator. A nil guard uses the built-in rules.
func New(provider model.Provider, exec *tools.Executor, guard *guardrail.Filter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:     provider,
		exec:         exec,
		guard:        guard,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.guard == nil {
		o.guard = guardrail.New()
	}
	o.log = o.log.Named("agent")
	return o
}

// Handle runs one turn for user. A nil sink disables streaming. The returned
// Reply is always usable as the response body; a non-nil error additionally
// classifies the failure (ErrBlocked, ErrInvalidRequest,
// model.ErrUpstreamUnavailable).
func (o *Orchestrator) Handle(ctx context.Context, user storage.User, req model.AssistantRequest, sink TokenSink) (Reply, error) {
	t := &turn{
		o:    o,
		user: user,
		req:  req,
		log:  o.log.With(zap.Int64("user_id", user.ID), zap.String("context_id", req.CurrentContextID)),
	}
	defer t.enter(StateIdle)

	t.enter(StateFiltering)
	if v := o.guard.CheckAll(t.guardTexts()...); v.Blocked {
		t.log.Info("guardrail blocked turn", zap.String("category", string(v.Category)))
		return Reply{Response: model.AssistantResponse{Error: v.Refusal}}, &BlockedError{Verdict: v}
	}

	if req.ConfirmedAction != nil {
		return t.confirmed(ctx)
	}
	if strings.TrimSpace(req.Message) == "" {
		return Reply{Response: model.AssistantResponse{Error: "message is required"}}, ErrInvalidRequest
	}
	return t.fresh(ctx, sink)
}

type turn struct {
	o     *Orchestrator
	user  storage.User
	req   model.AssistantRequest
	state State
	log   *zap.Logger
}

func (t *turn) enter(s State) {
	if t.state == s {
		return
	}
	t.log.Debug("state transition", zap.Stringer("from", t.state), zap.Stringer("to", s))
	t.state = s
}

// guardTexts is everything the user controls in this request, including
// replayed actions.
func (t *turn) guardTexts() []string {
	texts := []string{t.req.Message}
	if a := t.req.ConfirmedAction; a != nil {
		texts = append(texts, guardrail.ArgumentText(a.Arguments))
	}
	for _, a := range t.req.RemainingTasks {
		texts = append(texts, guardrail.ArgumentText(a.Arguments))
	}
	return texts
}

// confirmed executes a replayed action. The model is not consulted: the
// reply is the tool's own summary, and any remaining queue is handed back
// one step at a time.
func (t *turn) confirmed(ctx context.Context) (Reply, error) {
	action := *t.req.ConfirmedAction

	t.enter(StateToolSelected)
	result := t.o.exec.Execute(ctx, t.user, action.ToolCall(), true).Result

	t.enter(StateSummarizing)
	resp := model.AssistantResponse{Response: result.Summary, Result: &result}
	if result.Success && t.o.exec.RequiresConfirmation(action.Name) {
		resp.ActionCompleted = action.Name
	}

	if next, rest, ok := model.TaskQueue(t.req.RemainingTasks).Next(); ok {
		t.enter(StateConfirmationPending)
		resp.PendingConfirmation = &next
		resp.RemainingTasks = rest
	}

	t.log.Info("confirmed action handled",
		zap.String("tool", action.Name),
		zap.Bool("success", result.Success),
		zap.Int("remaining", len(resp.RemainingTasks)))
	return Reply{Response: resp}, nil
}

func (t *turn) fresh(ctx context.Context, sink TokenSink) (Reply, error) {
	t.enter(StateModeling)

	msgs := make([]model.Message, 0, t.o.historyLimit+2)
	msgs = append(msgs, systemPrompt(t.user, t.o.now()))
	msgs = append(msgs, recentHistory(t.req.ConversationHistory, t.o.historyLimit)...)
	msgs = append(msgs, model.Message{Role: model.RoleUser, Content: t.req.Message})

	var (
		text     strings.Builder
		lead     strings.Builder
		calls    []model.ToolCall
		streamed bool
	)

	err := t.o.provider.ChatWithTools(ctx, msgs, t.o.exec.Registry().Tools(), func(chunk string, tc []model.ToolCall) error {
		if len(tc) > 0 {
			if t.state == StatePlainReply {
				t.log.Warn("dropping tool calls after streamed text", zap.Int("count", len(tc)))
			} else {
				t.enter(StateToolSelected)
				calls = append(calls, tc...)
			}
		}

		if chunk == "" || t.state == StateToolSelected {
			return nil
		}
		// Leading whitespace does not commit the turn to a plain reply.
		if t.state == StateModeling && strings.TrimSpace(chunk) == "" {
			lead.WriteString(chunk)
			return nil
		}
		if t.state == StateModeling {
			t.enter(StatePlainReply)
			chunk = lead.String() + chunk
		}

		text.WriteString(chunk)
		if sink == nil {
			return nil
		}
		streamed = true
		return sink(chunk)
	})
	if err != nil {
		return t.modelFailure(err, streamed)
	}

	switch t.state {
	case StatePlainReply:
		return Reply{Response: model.AssistantResponse{Response: text.String()}, Streamed: streamed}, nil
	case StateToolSelected:
		return t.runTools(ctx, msgs, calls), nil
	default:
		t.log.Debug("model returned nothing")
		return Reply{Response: model.AssistantResponse{Response: fallbackReply}}, nil
	}
}

func (t *turn) modelFailure(err error, streamed bool) (Reply, error) {
	if errors.Is(err, model.ErrUpstreamUnavailable) {
		t.log.Warn("model provider unavailable", zap.Error(err))
		return Reply{Response: model.AssistantResponse{Error: UnavailableMessage}, Streamed: streamed}, fmt.Errorf("model call failed: %w", err)
	}
	t.log.Error("model call failed", zap.Error(err))
	return Reply{Response: model.AssistantResponse{Error: failureReply}, Streamed: streamed}, fmt.Errorf("model call failed: %w", err)
}

// runTools executes calls in model order until one needs confirmation.
func (t *turn) runTools(ctx context.Context, msgs []model.Message, calls []model.ToolCall) Reply {
	var results []model.ToolResult

	for i, call := range calls {
		ex := t.o.exec.Execute(ctx, t.user, call, false)
		if ex.Pending == nil {
			results = append(results, ex.Result)
			continue
		}

		t.enter(StateConfirmationPending)
		rest := make([]model.PendingAction, 0, len(calls)-i-1)
		for _, c := range calls[i+1:] {
			rest = append(rest, t.o.exec.Describe(c))
		}

		text := ex.Pending.ConfirmationMessage
		if prior := joinSummaries(results); prior != "" {
			text = prior + "\n\n" + text
		}

		t.log.Info("awaiting confirmation", zap.String("tool", ex.Pending.Name), zap.Int("remaining", len(rest)))
		return Reply{Response: model.AssistantResponse{
			Response:            text,
			PendingConfirmation: ex.Pending,
			RemainingTasks:      rest,
		}}
	}

	t.enter(StateSummarizing)
	return Reply{Response: model.AssistantResponse{Response: t.summarize(ctx, msgs, results)}}
}

// summarize asks the model to describe results, falling back to the tools'
// own summaries so executed effects are always reported.
func (t *turn) summarize(ctx context.Context, msgs []model.Message, results []model.ToolResult) string {
	fallback := joinSummaries(results)

	convo := append([]model.Message(nil), msgs...)
	for _, r := range results {
		convo = append(convo, toolMessage(r))
	}
	convo = append(convo, model.Message{Role: model.RoleSystem, Content: summaryInstruction})

	var b strings.Builder
	err := t.o.provider.Chat(ctx, convo, func(chunk string, _ []model.ToolCall) error {
		b.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.log.Warn("summary call failed, using tool summaries", zap.Error(err))
		return fallback
	}

	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return fallback
	}
	return summary
}
