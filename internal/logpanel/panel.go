// Package logpanel holds the user-facing log of a build: timestamps, info
// and error messages from the build steps, and the relayed output of the
// provisioning tool. Its plain-text dump is what gets saved as
// vagrant_ninja.log.
package logpanel

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jbweber/vagrant-ninja/internal/runner"
)

// StampLayout formats the timestamp lines written by Stamp.
const StampLayout = "2006-01-02 15:04:05.000000"

// Kind classifies an entry.
type Kind string

const (
	KindInfo   Kind = "info"
	KindError  Kind = "error"
	KindStdout Kind = "stdout"
	KindStderr Kind = "stderr"
)

// Entry is one line of the panel.
type Entry struct {
	Time time.Time
	Kind Kind
	Text string
}

// Plain returns the entry as it appears in the saved log.
func (e Entry) Plain() string {
	switch e.Kind {
	case KindInfo:
		return "INFO: " + e.Text
	case KindError:
		return "ERROR: " + e.Text
	default:
		return e.Text
	}
}

// Panel is an append-only, thread-safe log.
type Panel struct {
	mu          sync.Mutex
	entries     []Entry
	subscribers map[int]func(Entry)
	nextID      int

	// deliver keeps subscribers seeing entries in append order.
	deliver sync.Mutex

	now func() time.Time
}

// New creates an empty panel.
func New() *Panel {
	return &Panel{
		subscribers: make(map[int]func(Entry)),
		now:         time.Now,
	}
}

// Info appends an info line.
func (p *Panel) Info(text string) {
	p.append(KindInfo, text)
}

// Infof appends a formatted info line.
func (p *Panel) Infof(format string, args ...any) {
	p.append(KindInfo, fmt.Sprintf(format, args...))
}

// Error appends an error line.
func (p *Panel) Error(text string) {
	p.append(KindError, text)
}

// Errorf appends a formatted error line.
func (p *Panel) Errorf(format string, args ...any) {
	p.append(KindError, fmt.Sprintf(format, args...))
}

// Stamp appends an info line holding the current time.
func (p *Panel) Stamp() {
	p.append(KindInfo, p.now().Format(StampLayout))
}

// Line relays a line of process output. It makes a Panel a runner.Sink.
func (p *Panel) Line(stream runner.Stream, line string) {
	kind := KindStdout
	if stream == runner.Stderr {
		kind = KindStderr
	}
	p.append(kind, line)
}

// Subscribe registers fn to receive every entry appended from now on.
// fn must not write to the panel. The returned func unsubscribes.
func (p *Panel) Subscribe(fn func(Entry)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

func (p *Panel) append(kind Kind, text string) {
	p.mu.Lock()
	e := Entry{Time: p.now(), Kind: kind, Text: text}
	p.entries = append(p.entries, e)
	subs := make([]func(Entry), 0, len(p.subscribers))
	for i := 0; i < p.nextID; i++ {
		if fn, ok := p.subscribers[i]; ok {
			subs = append(subs, fn)
		}
	}
	p.deliver.Lock()
	p.mu.Unlock()

	defer p.deliver.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

// Clear removes all entries. Subscribers stay registered.
func (p *Panel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = nil
}

// Entries returns a copy of all entries.
func (p *Panel) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of entries.
func (p *Panel) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// PlainText renders the whole panel, one entry per line.
func (p *Panel) PlainText() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	for _, e := range p.entries {
		b.WriteString(e.Plain())
		b.WriteByte('\n')
	}
	return b.String()
}
