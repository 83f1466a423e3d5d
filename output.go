package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"genfill/core"
	"genfill/genclient"
	"genfill/imagegen"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.FgHiBlack)
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	headerColor.Fprintf(w, "━━━ %s ━━━\n", title)
	fmt.Fprintln(w)
}

// printError renders err with its suggested action when it carries one.
func printError(w io.Writer, err error) {
	if userErr, ok := core.AsUserError(err); ok {
		failColor.Fprintf(w, "✗ %s\n", userErr.Message)
		if userErr.Action != "" {
			dimColor.Fprintf(w, "  └─ %s\n", userErr.Action)
		}
		return
	}
	var genErr *genclient.Error
	if errors.As(err, &genErr) {
		failColor.Fprintf(w, "✗ %s\n", genErr.Message)
		if genErr.Action != "" {
			dimColor.Fprintf(w, "  └─ %s\n", genErr.Action)
		}
		if genclient.IsContentFiltered(err) {
			dimColor.Fprintln(w, "  └─ Try again with --anti 1 or --anti 2")
		}
		return
	}
	failColor.Fprintf(w, "✗ %v\n", err)
}

// printRunResult prints the counters and every collected error message.
func printRunResult(w io.Writer, title string, r imagegen.RunResult, elapsed time.Duration) {
	clr := successColor
	icon := "✓"
	switch {
	case r.FailureCount > 0 && r.SuccessCount == 0:
		clr, icon = failColor, "✗"
	case r.FailureCount > 0:
		clr, icon = warnColor, "!"
	}

	clr.Fprintf(w, "%s %s: %d/%d succeeded", icon, title, r.SuccessCount, r.TotalCount)
	dimColor.Fprintf(w, " (%v)\n", elapsed.Round(time.Millisecond))
	for _, msg := range r.ErrorMessages {
		failColor.Fprintf(w, "    └─ %s\n", msg)
	}
}

func printExports(w io.Writer, exported []exportedDocument) {
	for _, doc := range exported {
		fmt.Fprintf(w, "  → %s", doc.Path)
		dimColor.Fprintf(w, " (%s)\n", core.FormatBytesCompact(doc.Size))
	}
}

func printField(w io.Writer, name string, value any) {
	dimColor.Fprintf(w, "  %-18s", name)
	fmt.Fprintf(w, " %v\n", value)
}
