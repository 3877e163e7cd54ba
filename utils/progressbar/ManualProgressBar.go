// Package progressbar implements functionality of printing a progress
// bar to a terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ManualProgressBar implement progress bar functionality that must
// be manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed.
//
// ManualProgressBar does not use concurrency.
type ManualProgressBar struct {
	out             io.Writer
	label           string
	width           float64
	maxProgress     float64
	currentProgress float64
	bar             strings.Builder
	startTime       time.Time
}

// NewManualProgressBar returns a new ManualProgressBar which prints to
// out and reaches 100% after max calls to Increment
func NewManualProgressBar(out io.Writer, label string, width,
	max int) *ManualProgressBar {
	if max <= 0 {
		max = 1
	}
	return &ManualProgressBar{
		out:         out,
		label:       label,
		width:       float64(width),
		maxProgress: float64(max),
		startTime:   time.Now(),
	}
}

// Increment increments the interal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ManualProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// Done returns whether the progress bar has reached 100%
func (p *ManualProgressBar) Done() bool {
	return p.currentProgress >= p.maxProgress
}

// String returns the current progress bar without the elapsed time
func (p *ManualProgressBar) String() string {
	p.bar.Reset()
	if p.label != "" {
		p.bar.WriteString(p.label + " ")
	}
	p.bar.WriteString("|")

	currentProg := p.currentProgress / p.maxProgress * p.width
	for i := 0.0; i < currentProg; i++ {
		p.bar.WriteString("█")
	}
	for i := currentProg; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	fmt.Fprintf(&p.bar, "| [%.2f%%]", p.currentProgress/p.maxProgress*100)
	return p.bar.String()
}

// Display prints the progress bar over the previous line of output
func (p *ManualProgressBar) Display() {
	elapsed := time.Since(p.startTime).Truncate(time.Second)
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v elapsed: %v", p.String(), elapsed)
	if p.Done() {
		fmt.Fprintln(p.out)
	}
}
