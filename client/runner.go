package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hackmate/model"

	"go.uber.org/zap"
)

const DefaultStepDelay = 750 * time.Millisecond

const authLostMessage = "Your session has expired. Please log in again to finish the remaining steps."

var ErrRunnerBusy = errors.New("task runner is already executing")

// StepResult records one executed step of a queue.
type StepResult struct {
	Action  model.PendingAction
	Success bool
	Summary string
	Err     error
}

// TaskRunner drains a confirmed action and its queue, one confirmed call at
// a time. While it runs it is the only writer of the conversation's pending
// state.
type TaskRunner struct {
	conv      *Conversation
	delay     time.Duration
	executing atomic.Bool
	log       *zap.Logger

	mu    sync.Mutex
	steps []StepResult
}

// Executing reports whether a run is in progress.
func (r *TaskRunner) Executing() bool {
	return r.executing.Load()
}

// Steps returns the log of the most recent run.
func (r *TaskRunner) Steps() []StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepResult(nil), r.steps...)
}

// Run executes action, then whatever the server hands back next, falling
// back to the local queue. A failed step does not stop the queue; losing
// authentication does.
func (r *TaskRunner) Run(ctx context.Context, action model.PendingAction, queue model.TaskQueue) ([]StepResult, error) {
	if !r.executing.CompareAndSwap(false, true) {
		return nil, ErrRunnerBusy
	}
	return r.run(ctx, action, queue)
}

// run drains the queue. The caller has already claimed the executing flag.
func (r *TaskRunner) run(ctx context.Context, action model.PendingAction, queue model.TaskQueue) ([]StepResult, error) {
	defer r.conv.changed()
	defer r.executing.Store(false)
	defer r.conv.setPending(nil, nil)

	r.mu.Lock()
	r.steps = nil
	r.mu.Unlock()

	current := action
	for {
		r.conv.setPending(&current, queue)

		resp, err := r.conv.api.Send(ctx, model.AssistantRequest{
			PendingConfirmation: true,
			ConfirmedAction:     &current,
			RemainingTasks:      queue,
			CurrentContextID:    r.conv.contextID,
		}, nil)

		step := StepResult{Action: current, Err: err}
		switch {
		case errors.Is(err, ErrUnauthorized):
			r.record(step)
			// Not persisted: the store rejects the same expired token.
			r.conv.say(ctx, authLostMessage, false)
			r.log.Warn("authentication lost, halting queue", zap.String("tool", current.Name))
			return r.Steps(), err
		case ctx.Err() != nil:
			step.Err = ctx.Err()
			r.record(step)
			return r.Steps(), ctx.Err()
		case err != nil:
			reason := resp.Error
			if reason == "" {
				reason = unreachableMessage
			}
			step.Summary = fmt.Sprintf("Couldn't complete %s: %s", current.Name, reason)
			r.conv.say(ctx, step.Summary, true)
		default:
			step.Summary = resp.Response
			if resp.Error != "" {
				step.Summary = resp.Error
			}
			step.Success = resp.Error == "" && (resp.Result == nil || resp.Result.Success)
			r.conv.say(ctx, step.Summary, true)
			r.conv.publish(resp)
		}
		r.record(step)
		r.log.Info("step finished",
			zap.String("tool", current.Name), zap.Bool("success", step.Success), zap.Error(step.Err))

		var (
			next model.PendingAction
			ok   bool
		)
		if err == nil && resp.PendingConfirmation != nil {
			next, queue, ok = *resp.PendingConfirmation, resp.RemainingTasks, true
		} else {
			next, queue, ok = queue.Next()
		}
		if !ok {
			return r.Steps(), nil
		}
		if err := r.wait(ctx); err != nil {
			return r.Steps(), err
		}
		current = next
	}
}

func (r *TaskRunner) record(s StepResult) {
	r.mu.Lock()
	r.steps = append(r.steps, s)
	r.mu.Unlock()
}

func (r *TaskRunner) wait(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
