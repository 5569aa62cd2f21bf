// Package render turns decoded statistics replies into console screens.
//
// Rendering is split in two: Render is a pure mapping from a Reply to a
// Screen (plus the busy-indicator counter), and Draw writes a Screen to a
// Console. Tests assert on Screens; the CLI draws to a Terminal.
package render

import (
	"fmt"

	"swstat/pkg/protocol"
)

// Title heads every statistics screen.
const Title = "== WINESAPS STATISTICS =="

// Screen is one redraw of the console.
type Screen struct {
	// Clear wipes the console before drawing.
	Clear bool
	// Title and Busy are drawn only when Title is set.
	Title string
	Busy  string
	Lines []string
	// Done reports that the one-shot exchange has its result.
	Done bool
}

// Empty reports whether drawing s would produce no output.
func (s Screen) Empty() bool { return !s.Clear && s.Title == "" && len(s.Lines) == 0 }

var busyFrames = [4]string{"", ".", "..", "..."}

// Renderer maps data replies to screens. It is used from the receive loop
// only and is not safe for concurrent use.
type Renderer struct {
	oneShot bool
	dots    uint8
	console Console
}

// New returns a renderer drawing to c. In one-shot mode every data reply is
// shown as its response code and marks the screen Done.
func New(c Console, oneShot bool) *Renderer {
	return &Renderer{oneShot: oneShot, console: c}
}

// OneShot reports the mode the renderer was built for.
func (r *Renderer) OneShot() bool { return r.oneShot }

// Render builds the screen for a reply. Non-data replies yield an empty screen.
func (r *Renderer) Render(rep protocol.Reply) Screen {
	if rep.Kind != protocol.KindData {
		return Screen{}
	}
	if rep.Status != protocol.StatusOK || r.oneShot {
		return Screen{
			Lines: []string{ResponseCode(rep.Status)},
			Done:  r.oneShot,
		}
	}
	r.dots++
	sc := Screen{
		Clear: true,
		Title: Title,
		Busy:  busyFrames[r.dots%4],
		Lines: make([]string, 0, len(rep.Entries)),
	}
	for _, e := range rep.Entries {
		sc.Lines = append(sc.Lines, FormatEntry(e))
	}
	return sc
}

// Draw writes s to the console.
func (r *Renderer) Draw(s Screen) error {
	return Draw(r.console, s)
}

// Show renders rep and draws it.
func (r *Renderer) Show(rep protocol.Reply) (Screen, error) {
	sc := r.Render(rep)
	if sc.Empty() {
		return sc, nil
	}
	return sc, r.Draw(sc)
}

// Draw writes s to c.
func Draw(c Console, s Screen) error {
	if c == nil {
		return nil
	}
	if s.Clear {
		if err := c.Clear(); err != nil {
			return err
		}
	}
	if s.Title != "" {
		if err := c.WriteLine(s.Title); err != nil {
			return err
		}
		if err := c.WriteLine(s.Busy); err != nil {
			return err
		}
	}
	for _, l := range s.Lines {
		if err := c.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

// FormatEntry formats one statistic line.
func FormatEntry(e protocol.Entry) string {
	if !protocol.KnownCategory(e.Category) {
		return fmt.Sprintf("%s: %5d", protocol.UnknownLabel, e.Value)
	}
	return fmt.Sprintf("%-19s %5d", e.Label()+":", e.Value)
}

// ResponseCode formats a status line.
func ResponseCode(status uint8) string { return fmt.Sprintf("Response code (%d)", status) }

// Banner screens drawn by the session loop.
var (
	Waiting      = Screen{Lines: []string{"Waiting for server..."}}
	Disconnected = Screen{Lines: []string{"Disconnected!"}}
)
