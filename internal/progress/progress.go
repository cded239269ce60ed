// Package progress tracks transfer progress and renders it as a single console line.
//
// Transfer workers report incremental byte counts, possibly concurrently. The
// Counter accumulates them under a mutex so no update is lost, and the Printer
// rewrites one line on the terminal with the cumulative state.
package progress

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/benms/download-s3-file/s3types"
)

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// FormatBytes renders n bytes with a binary unit and two decimals, e.g. "1.50 KB".
// Zero is rendered as "0B".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0B"
	}
	value := float64(n)
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", math.Round(value*100)/100, sizeUnits[i])
}

// Percent returns 100*transferred/total. An empty object counts as complete.
func Percent(transferred, total int64) float64 {
	if total <= 0 {
		return 100
	}
	return float64(transferred) / float64(total) * 100
}

// Counter accumulates incremental byte counts. It is safe for concurrent use.
type Counter struct {
	mu          sync.Mutex
	total       int64
	transferred int64
}

// NewCounter returns a Counter for an object of total bytes.
func NewCounter(total int64) *Counter {
	return &Counter{total: total}
}

// Add records n more transferred bytes and returns the cumulative count.
// Negative counts are ignored and the count never exceeds a positive total.
func (c *Counter) Add(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(n)
}

func (c *Counter) add(n int64) int64 {
	if n > 0 {
		c.transferred += n
	}
	if c.total > 0 && c.transferred > c.total {
		c.transferred = c.total
	}
	return c.transferred
}

// Snapshot returns the cumulative and total byte counts.
func (c *Counter) Snapshot() (transferred, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transferred, c.total
}

// Callback adapts a tracker to the incremental callback used by transfer workers.
// The returned function may be called from several goroutines.
func Callback(total int64, tracker s3types.ProgressTracker) func(n int64) {
	if tracker == nil {
		return func(int64) {}
	}
	c := NewCounter(total)
	return func(n int64) {
		// Update runs under the counter lock so trackers observe counts in order.
		c.mu.Lock()
		defer c.mu.Unlock()
		tracker.Update(c.add(n), c.total)
	}
}

// Printer renders progress as "<name>  <done>/<total>  (<pct>%)", overwriting
// the previous line with a carriage return.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	name    string
	lastLen int
	done    bool
}

var _ s3types.ProgressTracker = (*Printer)(nil)

// NewPrinter creates a Printer that labels the line with name.
func NewPrinter(w io.Writer, name string) *Printer {
	return &Printer{w: w, name: name}
}

// Line formats a single progress line without the leading carriage return.
func Line(name string, transferred, total int64) string {
	return fmt.Sprintf("%s  %s/%s  (%.2f%%)",
		name, FormatBytes(transferred), FormatBytes(total), Percent(transferred, total))
}

// Update implements s3types.ProgressTracker.
func (p *Printer) Update(bytesTransferred, totalBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	line := Line(p.name, bytesTransferred, totalBytes)
	pad := ""
	if n := p.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	p.lastLen = len(line)
	_, _ = fmt.Fprintf(p.w, "\r%s%s", line, pad)
}

// Complete implements s3types.ProgressTracker.
func (p *Printer) Complete() {
	p.finish()
}

// Error implements s3types.ProgressTracker.
func (p *Printer) Error(error) {
	p.finish()
}

func (p *Printer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	if p.lastLen > 0 {
		_, _ = io.WriteString(p.w, "\n")
	}
}

// Multi fans tracker calls out to every non-nil tracker. It returns nil when
// none are given.
func Multi(trackers ...s3types.ProgressTracker) s3types.ProgressTracker {
	var m multiTracker
	for _, t := range trackers {
		if t != nil {
			m = append(m, t)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

type multiTracker []s3types.ProgressTracker

func (m multiTracker) Update(bytesTransferred, totalBytes int64) {
	for _, t := range m {
		t.Update(bytesTransferred, totalBytes)
	}
}

func (m multiTracker) Complete() {
	for _, t := range m {
		t.Complete()
	}
}

func (m multiTracker) Error(err error) {
	for _, t := range m {
		t.Error(err)
	}
}
