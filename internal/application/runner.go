package application

import (
	"context"
	"fmt"

	"github.com/bnema/mcpt/internal/domain"
)

// ToolCall is the scripted step-4 invocation.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// WaitIndicator wraps a step execution for display purposes (the CLI
// supplies a spinner in auto mode).
type WaitIndicator func(ctx context.Context, label string, step func(context.Context)) error

// Runner walks the fixed four-step sequence. Steps execute strictly in
// order; a step's outcome (including timeout and protocol error) is
// recorded before the next one begins, and only a dead child halts the
// sequence early.
type Runner struct {
	session    *Session
	stepper    *Stepper
	controller *Controller
	indicator  WaitIndicator
	call       ToolCall
}

func NewRunner(session *Session, stepper *Stepper, controller *Controller, call ToolCall) *Runner {
	return &Runner{
		session:    session,
		stepper:    stepper,
		controller: controller,
		call:       call,
	}
}

func (r *Runner) SetWaitIndicator(indicator WaitIndicator) {
	r.indicator = indicator
}

// Run returns the recorded results and whether the sequence completed
// (false when the child died or the operator exited mid-run).
func (r *Runner) Run(ctx context.Context) ([]domain.StepResult, bool) {
	stages := []struct {
		label string
		run   func(context.Context) domain.StepResult
	}{
		{"Step 1: Initialize", r.stepper.Initialize},
		{"Step 2: Initialized Notification", r.stepper.SendInitialized},
		{"Step 3: List Tools", func(ctx context.Context) domain.StepResult {
			result, _ := r.stepper.ListTools(ctx)
			return result
		}},
		{"Step 4: Tool Call", func(ctx context.Context) domain.StepResult {
			result, _ := r.stepper.CallTool(ctx, r.call.Name, r.call.Arguments)
			return result
		}},
	}

	complete := true

	for i, stage := range stages {
		if i > 0 && !r.session.Alive() {
			r.session.PrintAndLog(fmt.Sprintf("[%s] Server exited; skipping remaining steps", r.session.Timestamp()))
			complete = false
			break
		}

		r.session.PrintAndLog(fmt.Sprintf("=== %s ===", stage.label))

		var result domain.StepResult
		execute := func(ctx context.Context) { result = stage.run(ctx) }

		if r.indicator != nil {
			_ = r.indicator(ctx, stage.label, execute)
		} else {
			execute(ctx)
		}

		if result.Outcome == domain.OutcomeChildExited {
			complete = false
			break
		}

		if !r.controller.AfterStep(result) {
			if i < len(stages)-1 {
				complete = false
			}
			break
		}
	}

	return r.session.History(), complete
}
