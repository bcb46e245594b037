package domain

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeProtocolError Outcome = "protocol-error"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeChildExited   Outcome = "child-exited"
)

// StepResult records one scripted protocol action and what came back.
// Appended to the session history and never mutated afterwards.
type StepResult struct {
	Name     string
	Request  Message
	Response *Message
	Outcome  Outcome
	Detail   string
}

func (r StepResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ToolsFromResult extracts the advertised tool descriptors from a
// tools/list result payload. Malformed payloads yield an empty list.
func ToolsFromResult(result json.RawMessage) []Tool {
	var payload struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil
	}

	return payload.Tools
}

// ContentPreview extracts the first displayable text from a tools/call
// result content list.
func ContentPreview(result json.RawMessage) (string, bool) {
	var payload struct {
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(result, &payload); err != nil || len(payload.Content) == 0 {
		return "", false
	}

	var item struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload.Content[0], &item); err == nil && item.Text != "" {
		return item.Text, true
	}

	return string(payload.Content[0]), true
}

// TruncatePreview caps a preview at limit runes, marking the cut.
func TruncatePreview(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return fmt.Sprintf("%s…", string(runes[:limit]))
}
