package vcardstore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tartampluch/go-contact-events/internal/config"
)

// Prompter asks the user whether contacts from source may be read.
type Prompter interface {
	Prompt(ctx context.Context, source string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, source string) (bool, error)

func (f PrompterFunc) Prompt(ctx context.Context, source string) (bool, error) {
	return f(ctx, source)
}

// TerminalPrompter asks a yes/no question on a terminal.
// Use it through a pointer: one reader goroutine serves every Prompt call, so
// a line is never lost between prompts and a cancelled prompt leaves its
// pending read to the next one.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
	// Question renders the prompt text. Defaults to an English question.
	Question func(source string) string

	once  sync.Once
	lines chan line
}

type line struct {
	text string
	err  error
}

// yes lists the accepted affirmative answers (English and French).
var yes = map[string]bool{"y": true, "yes": true, "o": true, "oui": true}

// readLines reads In one line at a time, no further ahead than the next
// answer. The channel is closed after the first read error.
func (p *TerminalPrompter) readLines() {
	r := bufio.NewReader(p.In)
	for {
		text, err := r.ReadString('\n')
		p.lines <- line{text, err}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

// Prompt writes the question and reads one line. Anything but yes is a no,
// including end of input.
func (p *TerminalPrompter) Prompt(ctx context.Context, source string) (bool, error) {
	question := fmt.Sprintf(config.FallbackPrompt, config.AppName, source)
	if p.Question != nil {
		question = p.Question(source)
	}
	if _, err := io.WriteString(p.Out, question); err != nil {
		return false, err
	}

	p.once.Do(func() {
		p.lines = make(chan line)
		go p.readLines()
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return false, nil
		}
		if l.err != nil && l.err != io.EOF {
			return false, l.err
		}
		return yes[strings.ToLower(strings.TrimSpace(l.text))], nil
	}
}
