package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/muesli/termenv"
)

// Fader reports fades as dim status lines and waits out their duration.
type Fader struct {
	out io.Writer
}

// NewFader creates a fader writing to out.
func NewFader(out io.Writer) *Fader {
	return &Fader{out: out}
}

func (f *Fader) FadeIn(ctx context.Context, d time.Duration) error {
	return f.fade(ctx, "fade in", d)
}

func (f *Fader) FadeOut(ctx context.Context, d time.Duration) error {
	return f.fade(ctx, "fade out", d)
}

func (f *Fader) fade(ctx context.Context, label string, d time.Duration) error {
	fmt.Fprintln(f.out, termenv.String(fmt.Sprintf("~ %s (%s)", label, d)).Faint())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
