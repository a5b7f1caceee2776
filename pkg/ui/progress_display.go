package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 24

// ProgressDisplay renders a single updating progress line for a
// non-interactive scrape or pack, printing log lines above it.
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	label     string
	ratio     float64
	step      int
	steps     int
	startTime time.Time
	stepStart time.Time
	verbose   bool
	errors    int
}

// NewProgressDisplay writes to out. With verbose every log line is
// printed; otherwise only failures are.
func NewProgressDisplay(out io.Writer, verbose bool) *ProgressDisplay {
	now := time.Now()
	return &ProgressDisplay{out: out, startTime: now, stepStart: now, verbose: verbose}
}

// StartStep begins a new labelled step such as one class
func (p *ProgressDisplay) StartStep(index, total int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.step, p.steps = index+1, total
	p.label = label
	p.ratio = 0
	p.stepStart = time.Now()
	p.printLine()
}

// Progress updates the current step's ratio
func (p *ProgressDisplay) Progress(ratio float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ratio = ratio
	p.printLine()
}

// Log prints message above the progress line
func (p *ProgressDisplay) Log(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	failure := strings.HasPrefix(message, "Error") || strings.HasPrefix(message, "Could not") || strings.HasPrefix(message, "Search for")
	if failure {
		p.errors++
	}
	if !p.verbose && !failure {
		return
	}

	p.clearLine()
	if failure {
		fmt.Fprintf(p.out, "%s %s\n", Red("✗"), message)
	} else {
		fmt.Fprintf(p.out, "%s %s\n", Dim("•"), message)
	}
	p.printLine()
}

// EndStep prints the step summary on its own line
func (p *ProgressDisplay) EndStep(summary string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLine()
	fmt.Fprintf(p.out, "%s %s %s (%s)\n", Green("✓"), Cyan(p.label), summary, FormatDuration(time.Since(p.stepStart)))
}

// Complete prints the final summary
func (p *ProgressDisplay) Complete(summary string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLine()
	fmt.Fprintf(p.out, "\n%s %s in %s\n", Green("✓"), summary, FormatDuration(time.Since(p.startTime)))
	if p.errors > 0 {
		fmt.Fprintf(p.out, "  %s %d items failed\n", Dim("•"), p.errors)
	}
}

// Errors returns how many failure lines were seen
func (p *ProgressDisplay) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}

func (p *ProgressDisplay) printLine() {
	line := fmt.Sprintf("\r%s [%s] %3.0f%%", Cyan(p.label), Bar(p.ratio, barWidth), p.ratio*100)
	if p.steps > 0 {
		line += fmt.Sprintf(" • %d/%d", p.step, p.steps)
	}
	fmt.Fprint(p.out, line)
}

func (p *ProgressDisplay) clearLine() {
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 100))
}
