package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-realtime/core/conversations"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const (
	defaultConsoleWidth = 80
	bodyIndent          = 4
)

type consoleStyles struct {
	status    lipgloss.Style
	err       lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	faint     lipgloss.Style
}

// console prints notifications as a plain transcript. Response snapshots are
// held back until the response completes so every answer is printed once.
type console struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	styles   consoleStyles
	response string
}

func newConsole(out io.Writer, width int) *console {
	if width <= bodyIndent {
		width = defaultConsoleWidth
	}

	renderer := lipgloss.NewRenderer(out)
	return &console{
		out:   out,
		width: width,
		styles: consoleStyles{
			status:    renderer.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
			err:       renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			user:      renderer.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
			assistant: renderer.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
			faint:     renderer.NewStyle().Faint(true),
		},
	}
}

func (c *console) observe(event events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := event.(type) {
	case events.SessionStatus:
		if strings.HasPrefix(e.Text, "Error: ") {
			c.line(c.styles.err.Render(e.Text))
			return
		}
		c.line(c.styles.status.Render("• " + e.Text))
	case events.SessionInitializing:
		if e.Initializing {
			c.line(c.styles.status.Render("• connecting..."))
		}
	case events.UserSpeechStarted:
		c.line(c.styles.faint.Render("(speech detected)"))
	case events.UserTranscriptSegment:
		c.block(c.styles.user.Render("you"), e.Segment)
	case events.AssistantResponseUpdated:
		c.response = e.Text
	case events.AssistantResponseComplete:
		if c.response != "" {
			c.block(c.styles.assistant.Render("ema"), c.response)
			c.response = ""
		}
	case events.ConversationTurnRecorded:
		at := time.UnixMilli(e.TimestampMillis).Format(time.TimeOnly)
		c.line(c.styles.faint.Render(fmt.Sprintf("saved turn %s (session %s)", at, e.SessionID)))
	}
}

func (c *console) info(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(c.styles.status.Render(text))
}

func (c *console) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(c.styles.err.Render("Error: " + err.Error()))
}

func (c *console) history(snapshot conversations.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.line(c.styles.status.Render(fmt.Sprintf("session %s, %d turns", snapshot.SessionID, len(snapshot.Turns))))
	for i, turn := range snapshot.Turns {
		c.line(c.styles.faint.Render(fmt.Sprintf("#%d %s", i+1, time.UnixMilli(turn.TimestampMillis).Format(time.TimeOnly))))
		c.block(c.styles.user.Render("you"), turn.Transcription)
		c.block(c.styles.assistant.Render("ema"), turn.Response)
	}
}

func (c *console) line(text string) {
	fmt.Fprintln(c.out, text)
}

func (c *console) block(label, body string) {
	wrapped := wordwrap.String(body, c.width-bodyIndent)
	fmt.Fprintln(c.out, label)
	fmt.Fprintln(c.out, indent.String(wrapped, bodyIndent))
}
