// Package presence tracks the bot's displayed expression and the recent
// activity feed.
package presence

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"lumi/internal/errors"

	"github.com/google/uuid"
)

// Expression is a displayed face state
type Expression string

const (
	Idle     Expression = "idle"
	Happy    Expression = "happy"
	Thinking Expression = "thinking"
	Working  Expression = "working"
	Error    Expression = "error"
)

// Expressions in navigation order
var Expressions = []Expression{Idle, Happy, Thinking, Working, Error}

// StatusLine is the label and indicator shown for an expression
type StatusLine struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

var statusLines = map[Expression]StatusLine{
	Idle:     {"IDLE", "System Online - Waiting for commands", "#00ff88"},
	Happy:    {"HAPPY", "Everything is awesome!", "#00ff88"},
	Thinking: {"THINKING", "Processing request...", "#3498db"},
	Working:  {"WORKING", "Executing tasks...", "#f39c12"},
	Error:    {"ERROR", "Something went wrong!", "#ff4757"},
}

// MaxActivity is the number of activity entries kept
const MaxActivity = 10

// Activity is one activity log entry
type Activity struct {
	ID      uuid.UUID `json:"id"`
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// Presence is the expression state machine plus activity log
type Presence struct {
	mu       sync.RWMutex
	now      func() time.Time
	started  time.Time
	current  Expression
	preview  int
	activity []Activity
}

// New starts in the idle expression
func New() *Presence {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Presence {
	return &Presence{now: now, started: now(), current: Idle}
}

// ParseExpression validates an expression name
func ParseExpression(s string) (Expression, error) {
	e := Expression(strings.ToLower(s))
	if _, ok := statusLines[e]; !ok {
		return "", errors.InvalidInput(fmt.Sprintf("unknown expression %q", s))
	}
	return e, nil
}

// Set switches the expression and logs the change
func (p *Presence) Set(e Expression) error {
	if _, ok := statusLines[e]; !ok {
		return errors.InvalidInput(fmt.Sprintf("unknown expression %q", e))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = e
	p.preview = indexOf(e)
	p.logLocked("info", "Expression changed to: "+strings.ToUpper(string(e)))
	return nil
}

// Next moves the preview cursor forward without applying it
func (p *Presence) Next() Expression {
	return p.move(1)
}

// Previous moves the preview cursor back without applying it
func (p *Presence) Previous() Expression {
	return p.move(-1)
}

func (p *Presence) move(step int) Expression {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(Expressions)
	p.preview = ((p.preview+step)%n + n) % n
	e := Expressions[p.preview]
	p.logLocked("info", "Previewing: "+strings.ToUpper(string(e)))
	return e
}

// ApplyPreview sets the expression under the preview cursor
func (p *Presence) ApplyPreview() error {
	p.mu.RLock()
	e := Expressions[p.preview]
	p.mu.RUnlock()
	return p.Set(e)
}

// Current returns the active expression and its status line
func (p *Presence) Current() (Expression, StatusLine) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, statusLines[p.current]
}

// Log records an activity entry, newest first
func (p *Presence) Log(kind, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logLocked(kind, message)
}

func (p *Presence) logLocked(kind, message string) {
	entry := Activity{ID: uuid.New(), At: p.now(), Kind: kind, Message: message}
	p.activity = append([]Activity{entry}, p.activity...)
	if len(p.activity) > MaxActivity {
		p.activity = p.activity[:MaxActivity]
	}
}

// Activity returns a copy of the log, newest first
func (p *Presence) Activity() []Activity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Activity, len(p.activity))
	copy(out, p.activity)
	return out
}

// Uptime is the time since the presence was created
func (p *Presence) Uptime() time.Duration {
	return p.now().Sub(p.started)
}

// FormatUptime renders a duration as HH:MM:SS; hours may exceed 99
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func indexOf(e Expression) int {
	for i, x := range Expressions {
		if x == e {
			return i
		}
	}
	return 0
}
