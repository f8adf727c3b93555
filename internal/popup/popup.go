// Package popup provides transient notification surfaces.
//
// Each consumer owns its own Surface, created from a shared Factory. A
// surface shows at most one message: setting a new one replaces the old one
// and restarts the dismiss timer. There is no queue.
package popup

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DefaultTimeout is how long a message stays before it is dismissed.
const DefaultTimeout = 4 * time.Second

// Type is the severity of a message.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
)

// Spec is one notification.
type Spec struct {
	Message string
	Type    Type
}

// Success returns a success notification.
func Success(msg string) *Spec { return &Spec{Message: msg, Type: TypeSuccess} }

// Error returns an error notification.
func Error(msg string) *Spec { return &Spec{Message: msg, Type: TypeError} }

// Warning returns a warning notification.
func Warning(msg string) *Spec { return &Spec{Message: msg, Type: TypeWarning} }

// Setter replaces the message on a surface. A nil spec clears it.
type Setter func(*Spec)

// AlertWriter receives blocking alerts raised without a surface.
var AlertWriter io.Writer = os.Stderr

var alertMu sync.Mutex

// Alert writes msg to AlertWriter. It is the fallback for flows that were
// given no Setter.
func Alert(msg string) {
	alertMu.Lock()
	defer alertMu.Unlock()
	fmt.Fprintln(AlertWriter, msg)
}

// Report shows spec through set, or as an Alert when set is nil.
func Report(set Setter, spec *Spec) {
	if spec == nil {
		return
	}
	if set == nil {
		Alert(spec.Message)
		return
	}
	set(spec)
}

// Theme holds the colors used to render messages.
type Theme struct {
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
}

// DefaultTheme matches the console status colors.
var DefaultTheme = Theme{
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Warning: lipgloss.Color("#FFAF00"), // amber
}

func (t Theme) style(typ Type) lipgloss.Style {
	color := t.Warning
	switch typ {
	case TypeSuccess:
		color = t.Success
	case TypeError:
		color = t.Error
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// Factory builds surfaces that share a theme and timeout.
type Factory struct {
	Timeout time.Duration
	Theme   Theme
}

// NewFactory returns a factory with the default theme and timeout.
func NewFactory() *Factory {
	return &Factory{Timeout: DefaultTimeout, Theme: DefaultTheme}
}

// New creates a surface. onChange, if not nil, is called after every change
// including auto-dismissal.
func (f *Factory) New(onChange func(*Spec)) *Surface {
	return &Surface{timeout: f.Timeout, theme: f.Theme, onChange: onChange}
}

// Surface holds the message of one consumer.
type Surface struct {
	timeout  time.Duration
	theme    Theme
	onChange func(*Spec)

	mu      sync.Mutex
	current *Spec
	timer   *time.Timer
	gen     uint64
}

// Set replaces the current message. A timeout of zero disables dismissal.
func (s *Surface) Set(spec *Spec) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.current = spec
	if spec != nil && s.timeout > 0 {
		s.timer = time.AfterFunc(s.timeout, func() { s.expire(gen) })
	}
	s.mu.Unlock()

	s.notify(spec)
}

// Setter returns s.Set for passing to flows.
func (s *Surface) Setter() Setter {
	return s.Set
}

// Dismiss clears the current message.
func (s *Surface) Dismiss() {
	s.Set(nil)
}

// Current returns the message on display, or nil.
func (s *Surface) Current() *Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Render formats the current message, or returns "" when there is none.
func (s *Surface) Render() string {
	spec := s.Current()
	if spec == nil {
		return ""
	}
	return s.theme.style(spec.Type).Render(spec.Message)
}

func (s *Surface) expire(gen uint64) {
	s.mu.Lock()
	// A newer Set already replaced the expiring message.
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.timer = nil
	s.mu.Unlock()

	s.notify(nil)
}

func (s *Surface) notify(spec *Spec) {
	if s.onChange != nil {
		s.onChange(spec)
	}
}
