package application

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bnema/mcpt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runnerFixture(t *testing.T, input string, auto bool) (*Runner, *stepperFixture) {
	t.Helper()

	f := newStepperFixture(t)
	controller := NewController(f.session, strings.NewReader(input), f.out, auto, 30)

	runner := NewRunner(f.session, f.stepper, controller, ToolCall{
		Name:      "search_images_tool",
		Arguments: map[string]any{"query": "cats", "limit": 1},
	})
	return runner, f
}

func TestFullSequenceSucceeds(t *testing.T) {
	runner, f := runnerFixture(t, "", true)

	results, complete := runner.Run(context.Background())

	require.True(t, complete)
	require.Len(t, results, 4)

	assert.Equal(t, []string{"initialize", "initialized", "tools/list", "tools/call"},
		[]string{results[0].Name, results[1].Name, results[2].Name, results[3].Name})
	for _, result := range results {
		assert.Equal(t, domain.OutcomeSuccess, result.Outcome, result.Name)
	}

	assert.Contains(t, f.log.contents(), "=== Step 1: Initialize ===")
	assert.Contains(t, f.log.contents(), "Tools: search_images_tool")
}

func TestTimeoutStepDoesNotHaltSequence(t *testing.T) {
	runner, f := runnerFixture(t, "", true)
	f.server.ignore["tools/list"] = true

	results, complete := runner.Run(context.Background())

	require.True(t, complete)
	require.Len(t, results, 4)
	assert.Equal(t, domain.OutcomeTimeout, results[2].Outcome)
	assert.Equal(t, domain.OutcomeSuccess, results[3].Outcome)
}

func TestChildDeathHaltsSequence(t *testing.T) {
	runner, f := runnerFixture(t, "", true)

	calls := 0
	f.server.proc.script = func(line string) {
		calls++
		if calls == 1 {
			f.server.handle(line)
			return
		}
		go f.server.proc.exit(1)
	}

	results, complete := runner.Run(context.Background())

	assert.False(t, complete)
	assert.Less(t, len(results), 4)
}

func TestOperatorExitStopsRun(t *testing.T) {
	runner, _ := runnerFixture(t, "n\n", false)

	results, complete := runner.Run(context.Background())

	assert.False(t, complete)
	require.Len(t, results, 1)
	assert.Equal(t, "initialize", results[0].Name)
}

func TestStepsExecuteStrictlyInOrder(t *testing.T) {
	runner, f := runnerFixture(t, "", true)

	runner.Run(context.Background())

	var methods []string
	for _, line := range f.server.proc.writtenLines() {
		if strings.Contains(line, `"method"`) {
			start := strings.Index(line, `"method":"`) + len(`"method":"`)
			end := strings.Index(line[start:], `"`)
			methods = append(methods, line[start:start+end])
		}
	}
	assert.Equal(t, []string{"initialize", "notifications/initialized", "tools/list", "tools/call"}, methods)
}

func TestWaitIndicatorWrapsEachStep(t *testing.T) {
	runner, _ := runnerFixture(t, "", true)

	var labels []string
	runner.SetWaitIndicator(func(ctx context.Context, label string, step func(context.Context)) error {
		labels = append(labels, label)
		step(ctx)
		return nil
	})

	results, complete := runner.Run(context.Background())

	require.True(t, complete)
	require.Len(t, results, 4)
	assert.Len(t, labels, 4)
	assert.Contains(t, labels[0], "Initialize")
}

func TestDeadChildBeforeLaterStepsMarksIncomplete(t *testing.T) {
	f := newStepperFixture(t)
	inputR, inputW := io.Pipe()
	controller := NewController(f.session, inputR, f.out, false, 30)
	runner := NewRunner(f.session, f.stepper, controller, ToolCall{Name: "search_images_tool"})

	// Kill the child while the operator sits at the first menu, then
	// let the menu continue.
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if len(f.session.History()) >= 1 {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		f.server.proc.exit(9)
		<-f.server.proc.Done()
		_, _ = inputW.Write([]byte("\n"))
		_ = inputW.Close()
	}()

	results, complete := runner.Run(context.Background())

	assert.False(t, complete)
	assert.NotEmpty(t, results)
	assert.Contains(t, f.log.contents(), "skipping remaining steps")
}

func TestRunSummaryLandsInLog(t *testing.T) {
	runner, f := runnerFixture(t, "", true)

	runner.Run(context.Background())

	log := f.log.contents()
	assert.Contains(t, log, "initialize -> SUCCESS")
	assert.Contains(t, log, "tools/call -> SUCCESS")
	assert.NotContains(t, log, "\x1b[")
}
