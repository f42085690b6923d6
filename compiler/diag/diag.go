package diag

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

type (
	// Location points at a byte offset of a source text.
	// It's used only for diagnostics.
	Location struct {
		Path string // empty for anonymous sources
		Text string
		Off  int
	}

	Diagnostic struct {
		Loc   Location
		Err   error
		Fatal bool
	}

	List []Diagnostic

	// Sink accumulates diagnostics. It never terminates anything,
	// the driver polls Stopped and Failed between stages.
	Sink struct {
		mu   sync.Mutex
		list List
		stop bool
	}
)

const (
	colorOn  = "\x1b[31;1m"
	colorOff = "\x1b[0m"
)

func At(path, text string, off int) Location {
	return Location{Path: path, Text: text, Off: off}
}

// LineCol returns 1-based line and 0-based column of the offset.
func (l Location) LineCol() (line, col int) {
	off := l.Off
	if off > len(l.Text) {
		off = len(l.Text)
	}
	if off < 0 {
		off = 0
	}

	before := l.Text[:off]

	line = strings.Count(before, "\n") + 1
	col = len(before) - (strings.LastIndexByte(before, '\n') + 1)

	return
}

func (l Location) String() string {
	name := "anonymous"
	if l.Path != "" {
		name = filepath.Base(l.Path)
	}

	line, col := l.LineCol()

	return fmt.Sprintf("(%s/%d:%d)", name, line, col)
}

func (d Diagnostic) Error() string {
	return d.Loc.String() + ": " + d.Err.Error()
}

func (d Diagnostic) Unwrap() error { return d.Err }

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}

	return fmt.Sprintf("%v (and %d more errors)", l[0].Error(), len(l)-1)
}

// Format writes one diagnostic per line, locations painted red if color is set.
func (l List) Format(w io.Writer, color bool) (err error) {
	for _, d := range l {
		loc := d.Loc.String()
		if color {
			loc = colorOn + loc + colorOff
		}

		_, err = fmt.Fprintf(w, "%s: %v\n", loc, d.Err)
		if err != nil {
			return err
		}
	}

	return nil
}

// Delayed records a diagnostic and lets the current stage go on.
func (s *Sink) Delayed(l Location, err error) {
	s.add(Diagnostic{Loc: l, Err: err})
}

// Error records a diagnostic and signals the driver to stop now.
func (s *Sink) Error(l Location, err error) {
	s.add(Diagnostic{Loc: l, Err: err, Fatal: true})
}

func (s *Sink) add(d Diagnostic) {
	defer s.mu.Unlock()
	s.mu.Lock()

	s.list = append(s.list, d)
	s.stop = s.stop || d.Fatal
}

func (s *Sink) Stopped() bool {
	defer s.mu.Unlock()
	s.mu.Lock()

	return s.stop
}

func (s *Sink) Failed() bool {
	return s.Len() != 0
}

func (s *Sink) Len() int {
	defer s.mu.Unlock()
	s.mu.Lock()

	return len(s.list)
}

func (s *Sink) Diagnostics() List {
	defer s.mu.Unlock()
	s.mu.Lock()

	return append(List(nil), s.list...)
}

// Err returns all recorded diagnostics as an error or nil.
func (s *Sink) Err() error {
	l := s.Diagnostics()
	if len(l) == 0 {
		return nil
	}

	return l
}
