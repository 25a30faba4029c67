package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/omochice/socket-relay/pkg/protocol"
)

// ExitCommand ends a session when typed on its own line.
const ExitCommand = "/exit"

// Presenter renders one received message.
type Presenter func(protocol.Message)

var errSessionEnded = errors.New("session ended")

// Run drives a connected client until the local side types ExitCommand,
// in reaches EOF, the hub closes the connection, or ctx is cancelled.
// Lines from in are sent as typed; blank lines are skipped. Whichever path
// ends first stops the other and the client is disconnected before Run
// returns. Run returns ErrServerClosed when the hub went away first.
func Run(ctx context.Context, c Client, in io.Reader, present Presenter) error {
	defer c.Disconnect()

	g, ctx := errgroup.WithContext(ctx)
	lines := scanLines(ctx, in)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok || line == ExitCommand {
					return errSessionEnded
				}
				if strings.TrimSpace(line) == "" {
					continue
				}
				if err := c.SendMessage(line); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		messages := c.Messages()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-messages:
				if !ok {
					return ErrServerClosed
				}
				present(msg)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errSessionEnded) {
		return err
	}
	return nil
}

// scanLines feeds lines from in until EOF or ctx is done. A read blocked on
// in outlives the session; the goroutine exits on the next line or EOF.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimRight(scanner.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
