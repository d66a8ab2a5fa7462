package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/musher-dev/wdlplay/internal/eventloop"
)

// runMsg carries a posted closure into Update.
type runMsg func()

// Bridge is the event loop of the editor: posted closures are forwarded, in
// order, to the program and executed by Update. Post never blocks.
type Bridge struct {
	loop    *eventloop.Loop
	program *tea.Program
}

var _ eventloop.Dispatcher = (*Bridge)(nil)

// NewBridge creates a bridge. Closures posted before Run are held.
func NewBridge(logger *slog.Logger) *Bridge {
	return &Bridge{loop: eventloop.New(logger)}
}

// Post queues f for Update.
func (b *Bridge) Post(f func()) {
	b.loop.Post(func() { b.program.Send(runMsg(f)) })
}

// Run forwards posted closures to program until ctx ends or Stop is called.
func (b *Bridge) Run(ctx context.Context, program *tea.Program) error {
	b.program = program
	return b.loop.Run(ctx)
}

// Stop ends Run.
func (b *Bridge) Stop() {
	b.loop.Stop()
}
