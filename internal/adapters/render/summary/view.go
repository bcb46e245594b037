package summary

import (
	"fmt"

	"github.com/bnema/mcpt/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	LogPath  string
	Complete bool
}

// OutcomeToken colors a step outcome for terminal display. It doubles as
// the stepper's status formatter so per-step lines and the final summary
// agree on the palette.
func OutcomeToken(outcome domain.Outcome) string {
	s := newStyles()
	return outcomeToken(outcome, s)
}

func outcomeToken(outcome domain.Outcome, s styles) string {
	switch outcome {
	case domain.OutcomeSuccess:
		return s.success.Render("SUCCESS")
	case domain.OutcomeTimeout:
		return s.timeout.Render("TIMEOUT")
	case domain.OutcomeProtocolError:
		return s.failure.Render("PROTOCOL-ERROR")
	case domain.OutcomeChildExited:
		return s.failure.Render("CHILD-EXITED")
	default:
		return s.failure.Render(string(outcome))
	}
}

func renderView(results []domain.StepResult, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Session Summary"),
		s.header.Render(fmt.Sprintf("steps: %d", len(results))),
	}

	if len(results) == 0 {
		lines = append(lines, s.empty.Render("No steps were executed."))
	}

	for _, result := range results {
		lines = append(lines, s.section.Render(renderStep(result, s)))
	}

	lines = append(lines, s.section.Render(renderFooter(results, opts, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderStep(result domain.StepResult, s styles) string {
	parts := []string{
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.step.Render(result.Name),
			" ",
			outcomeToken(result.Outcome, s),
		),
	}

	if !result.Succeeded() && result.Detail != "" {
		parts = append(parts, s.detail.Render("  "+result.Detail))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderFooter(results []domain.StepResult, opts RenderOptions, s styles) string {
	verdict := s.success.Render("All steps completed.")
	if !opts.Complete || anyFailed(results) {
		verdict = s.failure.Render("Sequence did not complete cleanly.")
	}

	lines := []string{verdict}
	if opts.LogPath != "" {
		lines = append(lines, s.footnote.Render("Session log: "+opts.LogPath))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func anyFailed(results []domain.StepResult) bool {
	for _, result := range results {
		if !result.Succeeded() {
			return true
		}
	}
	return false
}
