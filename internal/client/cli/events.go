package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/client/syncer"
)

// printEvents renders sync progress until ctx is done. The engine never
// waits on this reader; events it could not deliver are simply not shown.
func (a *App) printEvents(ctx context.Context) {
	events := a.engine.Events()
	for {
		select {
		case ev := <-events:
			if line := formatEvent(ev); line != "" {
				printlnFn(line)
			}
		case <-ctx.Done():
			return
		}
	}
}

// formatEvent returns the line shown for ev, or "" for events kept quiet.
func formatEvent(ev syncer.Event) string {
	switch ev.Kind {
	case syncer.PhaseFinished:
		if ev.Failed == 0 {
			return ""
		}
		return fmt.Sprintf("[sync] %s: %d done, %d failed", ev.Phase, ev.Done, ev.Failed)

	case syncer.Finished:
		if ev.Result == nil {
			return ""
		}
		return formatResult(*ev.Result)
	}
	return ""
}

func formatResult(r syncer.Result) string {
	line := "[sync] " + r.Message
	for i, f := range r.Errors {
		if i == 3 {
			line += fmt.Sprintf("\n  ... and %d more", len(r.Errors)-i)
			break
		}
		line += "\n  " + f.String()
	}
	return line
}
