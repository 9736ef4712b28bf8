package tools

import (
	"context"
	"fmt"
	"runtime/debug"

	"hackmate/model"
	"hackmate/search"
	"hackmate/storage"

	"go.uber.org/zap"
)

// Execution is the outcome of one call: either a Result, or a Pending action
// awaiting confirmation with no side effect performed.
type Execution struct {
	Result  model.ToolResult
	Pending *model.PendingAction
}

// Executor runs registry tools against the store as a given user.
type Executor struct {
	registry *Registry
	env      Env
	log      *zap.Logger
}

// NewExecutor binds registry to store and searcher. A nil log discards output.
func NewExecutor(registry *Registry, store Store, searcher search.Backend, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tools")
	return &Executor{
		registry: registry,
		env:      Env{Store: store, Search: searcher, Log: log},
		log:      log,
	}
}

// Registry returns the registry the executor dispatches to.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs call as user. A confirmation-required tool only runs when
// confirmed is true; otherwise the returned Execution carries the pending
// action and nothing is written. Execute never returns an error or panics:
// every failure becomes an unsuccessful ToolResult.
func (e *Executor) Execute(ctx context.Context, user storage.User, call model.ToolCall, confirmed bool) (exec Execution) {
	log := e.log.With(zap.String("tool", call.Name), zap.Int64("user_id", user.ID), zap.Bool("confirmed", confirmed))

	def, ok := e.registry.Lookup(call.Name)
	if !ok {
		log.Warn("unknown tool requested")
		return failed(call.Name, model.KindUnknownTool, fmt.Sprintf("I don't know how to %q.", call.Name))
	}

	args, err := def.Decode(call.Arguments)
	if err != nil {
		log.Debug("invalid tool arguments", zap.Error(err))
		return failed(call.Name, model.KindInvalidArguments, "I couldn't use those details: "+err.Error()+".")
	}

	if def.RequiresConfirmation && !confirmed {
		pending, err := def.PendingAction(call, args)
		if err != nil {
			log.Error("confirmation render failed", zap.Error(err))
			return failed(call.Name, model.KindInvalidArguments, "I couldn't prepare that action.")
		}
		log.Debug("tool awaiting confirmation")
		return Execution{Pending: &pending}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("tool panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			exec = failed(call.Name, model.KindStorage, "Something went wrong while doing that. Please try again.")
		}
	}()

	payload, summary, err := def.run(ctx, e.env, user, args)
	if err != nil {
		kind, msg := classify(err)
		log.Info("tool failed", zap.String("kind", string(kind)), zap.Error(err))
		return failed(call.Name, kind, msg)
	}

	log.Info("tool executed")
	return Execution{Result: model.ToolResult{
		ToolName: call.Name,
		Success:  true,
		Payload:  payload,
		Summary:  summary,
	}}
}

func failed(name string, kind model.ErrorKind, msg string) Execution {
	return Execution{Result: model.ToolResult{
		ToolName:     name,
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: msg,
		Summary:      msg,
	}}
}

// Describe renders call as a queued step without running it. Confirmation
// tools use their template; anything else, including calls whose arguments
// do not validate, gets a generic description and fails on execution.
func (e *Executor) Describe(call model.ToolCall) model.PendingAction {
	if def, ok := e.registry.Lookup(call.Name); ok && def.RequiresConfirmation {
		if args, err := def.Decode(call.Arguments); err == nil {
			if pending, err := def.PendingAction(call, args); err == nil {
				return pending
			}
		}
	}
	return model.PendingAction{
		Name:                call.Name,
		Arguments:           call.Arguments,
		ConfirmationMessage: fmt.Sprintf("I'll run %s next. Should I proceed?", call.Name),
	}
}

// RequiresConfirmation reports whether the named tool is confirmation-gated.
// Unknown tools report false.
func (e *Executor) RequiresConfirmation(name string) bool {
	def, ok := e.registry.Lookup(name)
	return ok && def.RequiresConfirmation
}
