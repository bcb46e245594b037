package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

type Direction string

const (
	DirectionRequest      Direction = "request"
	DirectionResponse     Direction = "response"
	DirectionNotification Direction = "notification"
)

// MessageID is the canonical (compact JSON) form of a JSON-RPC id.
// Numeric and string ids stay distinct: `3` and `"3"` do not correlate.
type MessageID string

func IDFromRaw(raw json.RawMessage) MessageID {
	if len(raw) == 0 {
		return ""
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return MessageID(string(raw))
	}

	return MessageID(buf.String())
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message is one JSON-RPC frame on the wire, immutable once created.
// Raw holds the exact newline-free wire text.
type Message struct {
	Direction Direction
	ID        MessageID
	Method    string
	Result    json.RawMessage
	Error     *RPCError
	Raw       string
	At        time.Time
}

func (m Message) Failed() bool {
	return m.Error != nil
}

// PrettyJSON reindents the raw wire text for operator display. Falls
// back to the raw text when it does not reindent cleanly.
func (m Message) PrettyJSON() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(m.Raw), "", "  "); err != nil {
		return m.Raw
	}

	return buf.String()
}

type wireRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

func NewRequest(id int64, method string, params any, at time.Time) (Message, error) {
	raw, err := json.Marshal(wireRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params})
	if err != nil {
		return Message{}, err
	}

	idRaw, err := json.Marshal(id)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Direction: DirectionRequest,
		ID:        IDFromRaw(idRaw),
		Method:    method,
		Raw:       string(raw),
		At:        at,
	}, nil
}

func NewNotification(method string, params any, at time.Time) (Message, error) {
	raw, err := json.Marshal(wireRequest{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return Message{}, err
	}

	return Message{
		Direction: DirectionNotification,
		Method:    method,
		Raw:       string(raw),
		At:        at,
	}, nil
}

type wireFrame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// ClassifyLine decides whether a stdout line is a protocol frame.
// A line that is a JSON object becomes a Message: a response when it
// carries an id together with a result or error, a server-side
// notification otherwise. Anything that does not parse is ordinary
// program output and reports ok=false — a normal branch, not an error.
func ClassifyLine(line string, at time.Time) (Message, bool) {
	trimmed := bytes.TrimSpace([]byte(line))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Message{}, false
	}

	var frame wireFrame
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return Message{}, false
	}

	msg := Message{
		Direction: DirectionNotification,
		ID:        IDFromRaw(frame.ID),
		Method:    frame.Method,
		Result:    frame.Result,
		Error:     frame.Error,
		Raw:       string(trimmed),
		At:        at,
	}
	if msg.ID != "" && (frame.Result != nil || frame.Error != nil) {
		msg.Direction = DirectionResponse
	}

	return msg, true
}
