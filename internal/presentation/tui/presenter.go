package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	defaultBarWidth = 30
	minBarWidth     = 10
)

// Presenter draws the loading presentation as a single terminal line.
// On a TTY the line is redrawn in place; otherwise it prints one line per
// message change and a final line on Hide.
type Presenter struct {
	out         io.Writer
	profile     termenv.Profile
	interactive bool
	width       int

	mu        sync.Mutex
	visible   bool
	key       string
	message   string
	realtime  float64
	smoothed  float64
	lastPrint string
}

// NewPresenter creates a presenter writing to out.
func NewPresenter(out io.Writer) *Presenter {
	p := &Presenter{
		out:     out,
		profile: termenv.Ascii,
		width:   defaultBarWidth,
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.interactive = true
		p.profile = termenv.NewOutput(f).ColorProfile()
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = max(minBarWidth, min(defaultBarWidth, cols-40))
		}
	}
	return p
}

func (p *Presenter) Show(loadingKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
	p.key = loadingKey
	p.realtime, p.smoothed = 0, 0
	p.message = ""
	p.lastPrint = ""
	title := "loading"
	if loadingKey != "" {
		title += " " + loadingKey
	}
	fmt.Fprintln(p.out, p.profile.String(title).Foreground(p.profile.Color("#818cf8")).Bold())
	p.draw()
}

func (p *Presenter) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible {
		return
	}
	if p.interactive {
		p.draw()
		fmt.Fprintln(p.out)
	} else {
		fmt.Fprintln(p.out, p.line())
	}
	p.visible = false
}

func (p *Presenter) SetProgress(realtime, smoothed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.realtime, p.smoothed = realtime, smoothed
	if p.interactive {
		p.draw()
	}
}

func (p *Presenter) SetMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.message {
		return
	}
	p.message = text
	if p.interactive {
		p.draw()
		return
	}
	if p.visible && text != "" {
		fmt.Fprintln(p.out, p.line())
	}
}

func (p *Presenter) draw() {
	if !p.visible {
		return
	}
	line := p.line()
	if !p.interactive {
		return
	}
	if line == p.lastPrint {
		return
	}
	p.lastPrint = line
	fmt.Fprint(p.out, "\r\033[K"+line)
}

// line renders "[#####-----]  42% message". Caller holds mu.
func (p *Presenter) line() string {
	return Bar(p.smoothed, p.width, p.profile) + " " + fmt.Sprintf("%3.0f%%", p.smoothed*100) + " " + p.message
}

// Bar renders a progress bar of width cells for a value in [0,1].
func Bar(value float64, width int, profile termenv.Profile) string {
	value = max(0, min(1, value))
	filled := int(value*float64(width) + 0.5)
	done := profile.String(strings.Repeat("█", filled)).Foreground(profile.Color("#a78bfa"))
	rest := profile.String(strings.Repeat("░", width-filled)).Faint()
	return "[" + done.String() + rest.String() + "]"
}
