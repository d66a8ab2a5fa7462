// Package prompt provides interactive prompts for the wdlplay CLI.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/output"
)

var errCanceled = errors.New("prompt canceled")

// IsCanceled reports whether err ended a prompt without an answer.
func IsCanceled(err error) bool {
	return errors.Is(err, errCanceled) || errors.Is(err, context.Canceled)
}

// Prompter handles interactive prompts. Input lines are read by a single
// background goroutine so an abandoned prompt never steals the next answer.
type Prompter struct {
	out *output.Writer
	in  io.Reader
	fd  int

	once  sync.Once
	lines chan string
}

// New creates a Prompter reading from stdin.
func New(out *output.Writer) *Prompter {
	return NewWithInput(out, os.Stdin, int(os.Stdin.Fd()))
}

// NewWithInput creates a Prompter reading from in. fd is used for hidden
// password input when it refers to a terminal; pass -1 otherwise.
func NewWithInput(out *output.Writer, in io.Reader, fd int) *Prompter {
	return &Prompter{out: out, in: in, fd: fd}
}

// CanPrompt returns true if interactive prompts are available.
func (p *Prompter) CanPrompt() bool {
	term := p.out.Terminal()
	return term != nil && term.InteractiveEnabled() && !p.out.NoInput
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan string)

		go func() {
			defer close(p.lines)

			scanner := bufio.NewScanner(p.in)
			for scanner.Scan() {
				p.lines <- scanner.Text()
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", errCanceled
		}

		return strings.TrimSpace(line), nil
	}
}

// Confirm prompts for a yes/no confirmation.
func (p *Prompter) Confirm(ctx context.Context, message string, defaultValue bool) (bool, error) {
	defaultStr := "y/N"
	if defaultValue {
		defaultStr = "Y/n"
	}

	p.out.Print("%s [%s]: ", message, defaultStr)

	input, err := p.readLine(ctx)
	if err != nil {
		return defaultValue, err
	}

	input = strings.ToLower(input)
	if input == "" {
		return defaultValue, nil
	}

	return input == "y" || input == "yes", nil
}

// Password prompts for a secret without echo when input is a terminal.
func (p *Prompter) Password(ctx context.Context, prompt string) (string, error) {
	p.out.Print("%s: ", prompt)

	if p.fd >= 0 && term.IsTerminal(p.fd) {
		secret, err := term.ReadPassword(p.fd)
		p.out.Println()

		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		return strings.TrimSpace(string(secret)), nil
	}

	return p.readLine(ctx)
}

// Select prompts the user to select from a list of options and returns the
// chosen index.
func (p *Prompter) Select(ctx context.Context, message string, options []string) (int, error) {
	p.out.Println(message)

	for i, opt := range options {
		p.out.Print("  [%d] %s\n", i+1, opt)
	}

	for {
		p.out.Print("Select [1-%d]: ", len(options))

		input, err := p.readLine(ctx)
		if err != nil {
			return -1, err
		}

		if input == "" {
			continue
		}

		num, err := strconv.Atoi(input)
		if err != nil || num < 1 || num > len(options) {
			p.out.Warning("Invalid selection. Please enter a number between 1 and %d", len(options))
			continue
		}

		return num - 1, nil
	}
}

// Decide asks the user to answer a router request. Typing the reply name
// also works.
func (p *Prompter) Decide(ctx context.Context, req model.DecisionRequest) (model.DecisionReply, error) {
	replies := model.Replies()

	options := make([]string, len(replies))
	for i, r := range replies {
		options[i] = r.String()
	}

	p.out.Print("Reply to %s:\n", req.Kind)

	for i, opt := range options {
		p.out.Print("  [%d] %s\n", i+1, opt)
	}

	for {
		p.out.Print("Reply [1-%d]: ", len(options))

		input, err := p.readLine(ctx)
		if err != nil {
			return 0, err
		}

		if reply, parseErr := model.ParseDecisionReply(input); parseErr == nil {
			return reply, nil
		}

		if num, convErr := strconv.Atoi(input); convErr == nil && num >= 1 && num <= len(replies) {
			return replies[num-1], nil
		}

		if input != "" {
			p.out.Warning("Invalid reply. Enter 1-%d or one of %s", len(options), strings.Join(options, ", "))
		}
	}
}
