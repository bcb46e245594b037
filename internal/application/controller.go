package application

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/mcpt/internal/domain"
)

const menuPrompt = "[Enter] continue | r: reprint req/resp | o: show recent stdout/stderr | l: show log path | n: exit > "

// Controller owns the post-step operator menu. It reads from its own
// input reader, so however long the operator takes, the stream pumps
// keep draining in the background.
type Controller struct {
	session *Session
	in      *bufio.Reader
	out     io.Writer
	auto    bool
	tail    int
}

func NewController(session *Session, in io.Reader, out io.Writer, auto bool, tail int) *Controller {
	if tail <= 0 {
		tail = domain.DefaultBufferCapacity
	}

	return &Controller{
		session: session,
		in:      bufio.NewReader(in),
		out:     out,
		auto:    auto,
		tail:    tail,
	}
}

// AfterStep blocks on one menu prompt and returns false when the
// operator chose to end the run. Auto mode continues immediately.
func (c *Controller) AfterStep(result domain.StepResult) bool {
	if c.auto {
		return true
	}

	for {
		fmt.Fprint(c.out, menuPrompt)

		choice, err := c.readChoice()
		if err != nil {
			// Closed input (piped run): behave like continue.
			return true
		}

		c.session.LogOnly(fmt.Sprintf("[USER] choice: %s", orDefault(choice, "enter")))

		switch choice {
		case "", "c":
			return true
		case "n", "q", "exit":
			return false
		case "l":
			c.session.PrintAndLog(fmt.Sprintf("Log file: %s", c.session.LogPath()))
		case "r":
			c.reprint(result)
		case "o":
			c.showBuffers()
		default:
			fmt.Fprintln(c.out, "Unknown option. Please choose again.")
		}
	}
}

// ExtendWait implements the timeout-extension prompt consulted by the
// stepper.
func (c *Controller) ExtendWait(method string, id domain.MessageID) bool {
	if c.auto {
		return false
	}

	fmt.Fprintf(c.out, "Timed out waiting for %s (id=%s). Wait longer? [Y/n]: ", method, id)

	choice, err := c.readChoice()
	if err != nil {
		return false
	}

	return choice == "" || choice == "y" || choice == "yes"
}

func (c *Controller) readChoice() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}

	return strings.ToLower(strings.TrimSpace(line)), nil
}

func (c *Controller) reprint(result domain.StepResult) {
	if result.Request.Raw != "" {
		c.session.PrintAndLog(fmt.Sprintf("[%s] Reprint Request:", c.session.Timestamp()))
		c.session.PrintAndLog(result.Request.PrettyJSON())
	}
	if result.Response != nil {
		c.session.PrintAndLog(fmt.Sprintf("[%s] Reprint Response:", c.session.Timestamp()))
		c.session.PrintAndLog(result.Response.PrettyJSON())
	}
}

// showBuffers prints the tail of both stream buffers and records the
// snapshot in the session log.
func (c *Controller) showBuffers() {
	c.session.PrintAndLog(fmt.Sprintf("[%s] --- Recent STDOUT ---", c.session.Timestamp()))
	for _, line := range c.session.StdoutTail(c.tail) {
		c.session.PrintAndLog(line.Text)
	}

	c.session.PrintAndLog(fmt.Sprintf("[%s] --- Recent STDERR ---", c.session.Timestamp()))
	for _, line := range c.session.StderrTail(c.tail) {
		c.session.PrintAndLog(line.Text)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
