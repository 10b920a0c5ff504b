package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/hupe1980/ragfmt"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	modeColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
	keyColor  = color.New(color.FgBlue)
)

// printSummary writes a one-line result summary plus a line per extension
// field that some chunks lacked.
func printSummary(w io.Writer, env *ragfmt.Envelope, key string) {
	info := env.Metadata.ProcessingInfo
	mode := env.Metadata.QueryMode
	if mode == "" {
		mode = "-"
	}

	fmt.Fprintf(w, "%s %s: %d chunks, %d entities, %d relations, %d references\n",
		okColor.Sprint("normalized"),
		modeColor.Sprint(mode),
		info.TotalChunks, info.TotalEntities, info.TotalRelations, info.TotalReferences,
	)
	for _, fc := range info.ExtraFields {
		if fc.Missing == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s %q missing in %d of %d chunks %v\n",
			warnColor.Sprint("warning:"), fc.Field, fc.Missing, info.TotalChunks, env.MissingChunks(fc.Field))
	}
	if key != "" {
		fmt.Fprintf(w, "archived %s\n", keyColor.Sprint(key))
	}
}
