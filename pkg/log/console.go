// Copyright 2025 the assetman authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log renders batch progress on the console: one line per settled
// node as outcomes arrive, a summary block at the end. Structured logging
// stays on zerolog; this package only owns what a human watches.
package log

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"assetman/pkg/batch"
)

// 🎨 Display configuration
const (
	pathIndent  = 4  // spaces to indent node entries
	pathWidth   = 45 // base width for asset paths
	statusWidth = 12 // width for the status column
)

// 🎯 Console reports batch progress for one operation run
type Console struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
}

// 🏭 New creates a console reporter writing human output to w
func New(w io.Writer, level zerolog.Level) *Console {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Console{
		zlog:    zlog,
		console: w,
	}
}

// 📝 Header prints the run banner
func (c *Console) Header(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	title := color.New(color.Bold, color.FgCyan).Sprint("assetman")
	fmt.Fprintf(c.console, "\n%s %s\n\n", title, color.New(color.Faint).Sprint("• "+msg))
	c.zlog.Info().Msg(msg)
}

// 📝 StartProgress shows a progress bar sized to the expected node count.
// Pass 0 when the count is unknown; per-node lines still print.
func (c *Console) StartProgress(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total <= 0 {
		return
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithWriter(c.console).
		WithTitle("processing").
		Start()
	if err != nil {
		// Progress display is cosmetic; per-node lines carry the real output
		c.zlog.Debug().Err(err).Msg("progress bar unavailable")
		return
	}
	c.bar = bar
}

// 📝 NodeOutcome prints one settled node, colored by how it ended
func (c *Console) NodeOutcome(out batch.NodeOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var symbol string
	var symbolColor color.Attribute
	var status string
	switch {
	case out.Succeeded:
		symbol, symbolColor, status = "✓", color.FgGreen, "done"
	case out.Skipped():
		symbol, symbolColor, status = "-", color.FgYellow, "skipped"
	default:
		symbol, symbolColor, status = "✗", color.FgRed, out.ErrorKind.String()
	}

	fmt.Fprintf(c.console, "%s%s %s %s\n",
		fmt.Sprintf("%*s", pathIndent, ""),
		color.New(symbolColor).Sprint(symbol),
		fmt.Sprintf("%-*s", pathWidth, out.Path),
		color.New(color.Faint).Sprint(fmt.Sprintf("%-*s", statusWidth, status)))
	if c.bar != nil {
		c.bar.Increment()
	}

	evt := c.zlog.Info()
	if out.Failed() {
		evt = c.zlog.Warn().Err(out.Err)
	}
	evt.
		Str("path", out.Path).
		Bool("attempted", out.Attempted).
		Bool("succeeded", out.Succeeded).
		Int("retries", out.Retries).
		Msg("node settled")
}

// 📝 Summary prints the final accounting block for a finished batch
func (c *Console) Summary(report *batch.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.bar.Stop()
		c.bar = nil
	}

	fmt.Fprintf(c.console, "\n%s %s  %s %s  %s %s  %s %s\n",
		color.New(color.Faint).Sprint("total"),
		color.New(color.Bold).Sprint(report.Total),
		color.New(color.FgGreen).Sprint("ok"),
		color.New(color.Bold).Sprint(report.Succeeded),
		color.New(color.FgRed).Sprint("failed"),
		color.New(color.Bold).Sprint(report.Failed),
		color.New(color.FgYellow).Sprint("skipped"),
		color.New(color.Bold).Sprint(report.Skipped))

	for _, f := range report.Failures {
		if f.Skipped() {
			continue
		}
		fmt.Fprintf(c.console, "  %s %s: %v\n",
			color.New(color.FgRed).Sprint("✗"),
			f.Path, f.Err)
	}

	c.zlog.Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("batch summary")
}

// 📝 Success prints a success message
func (c *Console) Success(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	c.zlog.Info().Msg(msg)
}

// 📝 Warning prints a warning message
func (c *Console) Warning(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	c.zlog.Warn().Msg(msg)
}

// 📝 Error prints an error message
func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	c.zlog.Error().Msg(msg)
}

// 📝 Infof prints a formatted info message
func (c *Console) Infof(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(c.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	c.zlog.Info().Msg(msg)
}
