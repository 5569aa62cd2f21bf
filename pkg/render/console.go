package render

import (
	"io"
	"sync"
)

// Console is the output collaborator a Renderer draws to.
type Console interface {
	Clear() error
	WriteLine(s string) error
}

// clearSeq homes the cursor and erases the display.
const clearSeq = "\x1b[H\x1b[2J"

// Terminal writes screens to an ANSI terminal.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminal(w io.Writer) *Terminal { return &Terminal{w: w} }

func (t *Terminal) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, clearSeq)
	return err
}

func (t *Terminal) WriteLine(s string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, s+"\n")
	return err
}

// Buffer is a Console that keeps what was drawn since the last Clear.
type Buffer struct {
	mu     sync.Mutex
	lines  []string
	clears int
}

func (b *Buffer) Clear() error {
	b.mu.Lock()
	b.lines = b.lines[:0]
	b.clears++
	b.mu.Unlock()
	return nil
}

func (b *Buffer) WriteLine(s string) error {
	b.mu.Lock()
	b.lines = append(b.lines, s)
	b.mu.Unlock()
	return nil
}

// Lines returns a copy of the visible lines.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

// Clears returns how many times the console was cleared.
func (b *Buffer) Clears() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clears
}
