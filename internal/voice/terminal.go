package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// LineCapturer reads one answer per line. /quit and /exit end the loop.
type LineCapturer struct {
	in     io.Reader
	prompt io.Writer

	once  sync.Once
	lines chan string
	err   error
}

func NewLineCapturer(in io.Reader, prompt io.Writer) *LineCapturer {
	return &LineCapturer{in: in, prompt: prompt, lines: make(chan string)}
}

func (c *LineCapturer) Capture(ctx context.Context) (string, error) {
	c.once.Do(func() { go c.scan() })

	if c.prompt != nil {
		fmt.Fprint(c.prompt, "You: ")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.err != nil {
				return "", c.err
			}
			return "", io.EOF
		}
		input := strings.TrimSpace(line)
		if input == "/quit" || input == "/exit" {
			return "", io.EOF
		}
		return input, nil
	}
}

// scan feeds lines until the input closes. A line nobody waits for blocks
// it, so reads never run ahead of the loop.
func (c *LineCapturer) scan() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	c.err = scanner.Err()
	close(c.lines)
}

// WriterSpeaker prints what the interviewer says.
type WriterSpeaker struct {
	w io.Writer
}

func NewWriterSpeaker(w io.Writer) *WriterSpeaker {
	return &WriterSpeaker{w: w}
}

func (s *WriterSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintf(s.w, "InterviewGuru: %s\n\n", text)
	return err
}
