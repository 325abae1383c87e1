// Package output handles all driftwatch CLI output formatting.
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress writes stage progress updates to stderr.
type Progress struct {
	w        io.Writer
	verbose  bool
	silent   bool
	noColor  bool
	mu       sync.Mutex
	start    time.Time
	stageMsg string
	bar      *progressbar.ProgressBar
}

// NewProgress creates a progress reporter.
func NewProgress(w io.Writer, verbose, silent, noColor bool) *Progress {
	return &Progress{
		w:       w,
		verbose: verbose,
		silent:  silent,
		noColor: noColor,
		start:   time.Now(),
	}
}

// Stage prints a stage header like "[2/6] Discovering subdomains..."
func (p *Progress) Stage(num, total int, msg string) {
	if p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropBar()
	p.stageMsg = msg
	fmt.Fprintf(p.w, "[%d/%d] %s\n", num, total, msg)
}

// Detail prints verbose detail (only in verbose mode).
func (p *Progress) Detail(msg string) {
	if !p.verbose || p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearBar()
	fmt.Fprintf(p.w, "  %s\n", msg)
}

// Warn prints a warning to stderr.
func (p *Progress) Warn(msg string) {
	if p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearBar()
	fmt.Fprintf(p.w, "  ! %s\n", msg)
}

// StartItems begins a per-item bar for the current stage. Ticks arrive via
// Tick, typically wired into a worker pool's completion callback.
func (p *Progress) StartItems(total int) {
	if p.silent || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropBar()

	desc := strings.TrimRight(p.stageMsg, ".")
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	}
	if p.noColor {
		opts = append(opts, progressbar.OptionSetDescription(desc))
	} else {
		opts = append(opts,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetDescription("[cyan]"+desc+"[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}
	p.bar = progressbar.NewOptions(total, opts...)
}

// Tick advances the active item bar. Safe to call with no bar running and
// from multiple goroutines.
func (p *Progress) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// FinishItems ends the per-item bar started by StartItems.
func (p *Progress) FinishItems() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropBar()
}

// Complete prints the final duration.
func (p *Progress) Complete() {
	if p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropBar()
	elapsed := time.Since(p.start)
	fmt.Fprintf(p.w, "\nCompleted in %.1fs\n", elapsed.Seconds())
}

// dropBar finishes and forgets the active bar. Callers hold mu.
func (p *Progress) dropBar() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// clearBar wipes the bar's line so a message can print cleanly; the bar
// redraws on its next tick. Callers hold mu.
func (p *Progress) clearBar() {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
}
