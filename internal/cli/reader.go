package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// ReadLine reads one line from r, trimmed, giving up when ctx is done.
func ReadLine(ctx context.Context, r io.Reader) (string, error) {
	type result struct {
		err  error
		line string
	}

	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-ch:
		return res.line, res.err
	}
}

// Confirm writes prompt followed by [y/N] and reports whether the answer
// was yes. Anything else, including an empty line, is no.
func Confirm(ctx context.Context, r io.Reader, w io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(w, "%s [y/N]: ", prompt); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	answer, err := ReadLine(ctx, r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
