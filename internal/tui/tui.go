package tui

import (
	"context"
	"fmt"
	"net/netip"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// Run shows the live view until the user quits and returns the result of
// the trace, or nil if it was interrupted before finishing.
func Run(ctx context.Context, target string, dest netip.Addr, config *trace.Config, newTracer TracerFactory, styles Styles) (*trace.TraceResult, error) {
	model := New(ctx, target, dest, config, newTracer, styles)
	defer model.Close()

	p := tea.NewProgram(*model, tea.WithAltScreen(), tea.WithContext(ctx))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := finalModel.(Model); ok {
		if m.state == StateError && m.err != nil {
			return nil, m.err
		}
		return m.Result(), nil
	}

	return nil, nil
}
