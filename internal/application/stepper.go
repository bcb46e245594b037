package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/mcpt/internal/domain"
)

const ProtocolVersion = "2024-11-05"

// StepperOptions are the per-step deadlines and display limits.
type StepperOptions struct {
	InitializeTimeout time.Duration
	RequestTimeout    time.Duration
	CallTimeout       time.Duration
	ExtendTimeout     time.Duration
	PreviewLimit      int

	ClientName    string
	ClientVersion string
}

func (o *StepperOptions) applyDefaults() {
	if o.InitializeTimeout <= 0 {
		o.InitializeTimeout = 15 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
	if o.ExtendTimeout <= 0 {
		o.ExtendTimeout = 30 * time.Second
	}
	if o.PreviewLimit <= 0 {
		o.PreviewLimit = 200
	}
	if o.ClientName == "" {
		o.ClientName = "mcpt"
	}
	if o.ClientVersion == "" {
		o.ClientVersion = "0.0.0"
	}
}

// StatusFormatter renders an outcome token for the console. The
// default is plain text; the CLI injects a colored one.
type StatusFormatter func(domain.Outcome) string

func plainStatus(outcome domain.Outcome) string {
	return strings.ToUpper(string(outcome))
}

// ExtendFunc is consulted on a timeout; returning true keeps waiting
// for one more ExtendTimeout window without resending the request.
type ExtendFunc func(method string, id domain.MessageID) bool

// Stepper drives the scripted protocol sequence one request or
// notification at a time, correlating responses by identifier. It is
// the only writer to the child's stdin.
type Stepper struct {
	session *Session
	opts    StepperOptions
	status  StatusFormatter
	extend  ExtendFunc
	nextID  int64
}

func NewStepper(session *Session, opts StepperOptions) *Stepper {
	opts.applyDefaults()

	return &Stepper{
		session: session,
		opts:    opts,
		status:  plainStatus,
		nextID:  1,
	}
}

func (st *Stepper) SetStatusFormatter(f StatusFormatter) {
	if f != nil {
		st.status = f
	}
}

func (st *Stepper) SetExtendFunc(f ExtendFunc) {
	st.extend = f
}

func (st *Stepper) nextRequestID() int64 {
	id := st.nextID
	st.nextID++
	return id
}

// Initialize performs step 1 of the handshake.
func (st *Stepper) Initialize(ctx context.Context) domain.StepResult {
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    st.opts.ClientName,
			"version": st.opts.ClientVersion,
		},
	}

	return st.request(ctx, "initialize", "initialize", params, st.opts.InitializeTimeout)
}

// SendInitialized performs step 2: a notification, no wait.
func (st *Stepper) SendInitialized(ctx context.Context) domain.StepResult {
	now := st.session.cfg.Clock.Now()
	msg, err := domain.NewNotification("notifications/initialized", nil, now)
	if err != nil {
		return st.record(domain.StepResult{
			Name:    "initialized",
			Outcome: domain.OutcomeProtocolError,
			Detail:  fmt.Sprintf("encode notification: %v", err),
		})
	}

	st.echoOutbound("NOTIFY", msg)

	if err := st.session.proc.WriteLine(ctx, msg.Raw); err != nil {
		return st.record(domain.StepResult{
			Name:    "initialized",
			Request: msg,
			Outcome: domain.OutcomeChildExited,
			Detail:  fmt.Sprintf("write failed: %v", err),
		})
	}

	return st.record(domain.StepResult{
		Name:    "initialized",
		Request: msg,
		Outcome: domain.OutcomeSuccess,
		Detail:  "notification sent, no response expected",
	})
}

// ListTools performs step 3 and extracts the advertised tool names.
func (st *Stepper) ListTools(ctx context.Context) (domain.StepResult, []domain.Tool) {
	result := st.request(ctx, "tools/list", "tools/list", nil, st.opts.RequestTimeout)

	var tools []domain.Tool
	if result.Succeeded() && result.Response != nil {
		tools = domain.ToolsFromResult(result.Response.Result)

		names := make([]string, 0, len(tools))
		for _, tool := range tools {
			names = append(names, tool.Name)
		}
		st.session.PrintAndLog(fmt.Sprintf("[%s] Tools: %s", st.session.Timestamp(), strings.Join(names, ", ")))
	}

	return result, tools
}

// CallTool performs step 4 and returns the truncated content preview.
func (st *Stepper) CallTool(ctx context.Context, name string, arguments map[string]any) (domain.StepResult, string) {
	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}

	result := st.request(ctx, "tools/call", "tools/call", params, st.opts.CallTimeout)

	var preview string
	if result.Succeeded() && result.Response != nil {
		if text, ok := domain.ContentPreview(result.Response.Result); ok {
			preview = domain.TruncatePreview(text, st.opts.PreviewLimit)
			st.session.PrintAndLog(fmt.Sprintf("[%s] Content preview: %s", st.session.Timestamp(), preview))
		}
	}

	return result, preview
}

// request sends one identified request and waits for its correlated
// response: idle -> awaiting-response[id] -> idle. Timeouts, identifier
// mismatches, and child death each resolve the step with their own
// outcome; none of them aborts the run.
func (st *Stepper) request(ctx context.Context, stepName, method string, params any, timeout time.Duration) domain.StepResult {
	id := st.nextRequestID()

	msg, err := domain.NewRequest(id, method, params, st.session.cfg.Clock.Now())
	if err != nil {
		return st.record(domain.StepResult{
			Name:    stepName,
			Outcome: domain.OutcomeProtocolError,
			Detail:  fmt.Sprintf("encode request: %v", err),
		})
	}

	st.echoOutbound("REQUEST", msg)

	if err := st.session.proc.WriteLine(ctx, msg.Raw); err != nil {
		return st.record(domain.StepResult{
			Name:    stepName,
			Request: msg,
			Outcome: domain.OutcomeChildExited,
			Detail:  fmt.Sprintf("write failed: %v", err),
		})
	}

	result := st.await(ctx, stepName, msg, timeout)
	return st.record(result)
}

func (st *Stepper) await(ctx context.Context, stepName string, request domain.Message, timeout time.Duration) domain.StepResult {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		// Prefer an already-delivered response over a concurrent exit
		// or deadline so a server that answers and immediately quits
		// still correlates.
		var resp domain.Message
		select {
		case resp = <-st.session.responses:
		default:
			select {
			case resp = <-st.session.responses:

			case <-timer.C:
				if st.extend != nil && st.extend(request.Method, request.ID) {
					st.session.PrintAndLog(fmt.Sprintf("[%s] Extending wait by %s for id=%s", st.session.Timestamp(), st.opts.ExtendTimeout, request.ID))
					timer.Reset(st.opts.ExtendTimeout)
					continue
				}

				return domain.StepResult{
					Name:    stepName,
					Request: request,
					Outcome: domain.OutcomeTimeout,
					Detail:  fmt.Sprintf("no response for id=%s within %s", request.ID, timeout),
				}

			case <-st.session.proc.Done():
				// The exit can race the final response through the
				// stdout pump; drain it before concluding the server
				// died silently.
				st.session.pumps.Wait()
				select {
				case resp = <-st.session.responses:
				default:
					code, _ := st.session.proc.ExitCode()
					return domain.StepResult{
						Name:    stepName,
						Request: request,
						Outcome: domain.OutcomeChildExited,
						Detail:  fmt.Sprintf("server exited with code %d while awaiting id=%s", code, request.ID),
					}
				}

			case <-ctx.Done():
				return domain.StepResult{
					Name:    stepName,
					Request: request,
					Outcome: domain.OutcomeTimeout,
					Detail:  fmt.Sprintf("wait canceled: %v", ctx.Err()),
				}
			}
		}

		if resp.ID != request.ID {
			return domain.StepResult{
				Name:     stepName,
				Request:  request,
				Response: &resp,
				Outcome:  domain.OutcomeProtocolError,
				Detail:   fmt.Sprintf("response id %s does not match outstanding request id %s", resp.ID, request.ID),
			}
		}

		st.session.PrintAndLog(fmt.Sprintf("[%s] <= RESPONSE (id=%s):", st.session.Timestamp(), resp.ID))
		st.session.PrintAndLog(resp.PrettyJSON())

		if resp.Failed() {
			return domain.StepResult{
				Name:     stepName,
				Request:  request,
				Response: &resp,
				Outcome:  domain.OutcomeProtocolError,
				Detail:   fmt.Sprintf("server error: code=%d message=%s", resp.Error.Code, resp.Error.Message),
			}
		}

		return domain.StepResult{
			Name:     stepName,
			Request:  request,
			Response: &resp,
			Outcome:  domain.OutcomeSuccess,
			Detail:   "correlated response received",
		}
	}
}

// record appends the result to the run history and prints the one-line
// step summary.
func (st *Stepper) record(result domain.StepResult) domain.StepResult {
	st.session.Record(result)

	summary := fmt.Sprintf("[%s] %s -> %s", st.session.Timestamp(), result.Name, st.status(result.Outcome))
	st.session.PrintAndLog(summary)
	if !result.Succeeded() && result.Detail != "" {
		st.session.PrintAndLog(result.Detail)
	}

	return result
}

func (st *Stepper) echoOutbound(kind string, msg domain.Message) {
	st.session.PrintAndLog(fmt.Sprintf("[%s] -> %s:", st.session.Timestamp(), kind))
	st.session.PrintAndLog(msg.PrettyJSON())
}
