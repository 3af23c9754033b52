// Package ui provides terminal output helpers for the hblib CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Printer writes status lines to the user
type Printer struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
}

// NewPrinter returns a printer writing to stdout and stderr
func NewPrinter(noColor bool) *Printer {
	return &Printer{out: os.Stdout, errOut: os.Stderr, noColor: noColor || color.NoColor}
}

// NewPrinterTo returns a printer writing both streams to w without colors
func NewPrinterTo(w io.Writer) *Printer {
	return &Printer{out: w, errOut: w, noColor: true}
}

func (p *Printer) line(w io.Writer, attr color.Attribute, symbol, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.noColor {
		fmt.Fprintf(w, "%s %s\n", symbol, msg)
		return
	}
	color.New(attr).Fprintf(w, "%s %s\n", symbol, msg)
}

// Success prints a success message
func (p *Printer) Success(format string, args ...any) {
	p.line(p.out, color.FgGreen, "✓", format, args...)
}

// Error prints an error message to the error stream
func (p *Printer) Error(format string, args ...any) {
	p.line(p.errOut, color.FgRed, "✗", format, args...)
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...any) {
	p.line(p.out, color.FgYellow, "⚠", format, args...)
}

// Info prints an informational message
func (p *Printer) Info(format string, args ...any) {
	p.line(p.out, color.FgCyan, "ℹ", format, args...)
}

// Section prints a section header
func (p *Printer) Section(title string) {
	if p.noColor {
		fmt.Fprintf(p.out, "\n%s\n", title)
		return
	}
	color.New(color.FgCyan, color.Bold).Fprintf(p.out, "\n%s\n", title)
}

// ProgressBar wraps a progressbar instance for batch loops
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a bar writing to stderr
func NewProgressBar(total int, description string) *ProgressBar {
	return NewProgressBarTo(os.Stderr, total, description)
}

// NewProgressBarTo creates a bar writing to w
func NewProgressBarTo(w io.Writer, total int, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressBar{bar: bar}
}

// Set moves the bar to current
func (p *ProgressBar) Set(current int) {
	_ = p.bar.Set(current)
}

// Add advances the bar by n
func (p *ProgressBar) Add(n int) {
	_ = p.bar.Add(n)
}

// Describe replaces the description shown next to the bar
func (p *ProgressBar) Describe(description string) {
	p.bar.Describe(description)
}

// Finish completes the bar
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}
