package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/koscakluka/ema-realtime/core/conversations"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

const replHelp = `commands:
  /history       print the current conversation
  /new           start a new conversation on the same connection
  /state         print the connection state
  /capture on    start system audio capture
  /capture off   stop system audio capture
  /quit          close the session and exit
anything else is sent as a text message`

// sessionController is the part of the orchestrator the prompt drives.
type sessionController interface {
	SendTextMessage(text string) error
	StartNewSession() string
	CurrentSession() conversations.Snapshot
	SessionState() realtime.State
	StartCapture(ctx context.Context) error
	StopCapture() error
}

var errQuit = errors.New("quit")

// runPrompt reads lines from in until EOF, /quit or ctx is done.
func runPrompt(ctx context.Context, in io.Reader, c *console, session sessionController) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("failed to read input: %w", err)
					}
				default:
				}
				return nil
			}
			if err := handleLine(ctx, line, c, session); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				c.fail(err)
			}
		}
	}
}

func handleLine(ctx context.Context, line string, c *console, session sessionController) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return session.SendTextMessage(line)
	}

	command, arg, _ := strings.Cut(line, " ")
	switch command {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		c.info(replHelp)
	case "/history":
		c.history(session.CurrentSession())
	case "/new":
		c.info("new conversation " + session.StartNewSession())
	case "/state":
		c.info("state: " + session.SessionState().String())
	case "/capture":
		switch strings.TrimSpace(arg) {
		case "on":
			return session.StartCapture(ctx)
		case "off":
			return session.StopCapture()
		default:
			return fmt.Errorf("usage: /capture on|off")
		}
	default:
		return fmt.Errorf("unknown command %s, try /help", command)
	}
	return nil
}
