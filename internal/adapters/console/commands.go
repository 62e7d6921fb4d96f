package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
)

// CommandHandler consumes single-byte operator commands.
type CommandHandler interface {
	HandleCommand(b byte) bool
}

// CommandReader feeds every byte read from an operator console to a
// handler. Unknown bytes are the handler's to ignore.
type CommandReader struct {
	r       io.Reader
	handler CommandHandler
}

// NewCommandReader creates a reader over r (usually os.Stdin).
func NewCommandReader(r io.Reader, h CommandHandler) *CommandReader {
	return &CommandReader{r: r, handler: h}
}

// Run reads until EOF or ctx is cancelled. A blocked read on a terminal
// cannot be interrupted, so on cancellation the reading goroutine is left
// to exit with the process.
func (c *CommandReader) Run(ctx context.Context) error {
	bytesCh := make(chan byte)
	errCh := make(chan error, 1)

	go func() {
		br := bufio.NewReader(c.r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case bytesCh <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-bytesCh:
			if c.handler.HandleCommand(b) {
				slog.Debug("Operator report requested", "command", string(rune(b)))
			}
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
