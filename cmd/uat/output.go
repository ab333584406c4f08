package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/types"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func success(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

func warn(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}

// previewNotice tells the user nothing was written
func previewNotice() {
	fmt.Printf("\n%s\n", yellow("PREVIEW MODE - no changes written. Re-run with --no-preview to apply."))
}

// actorFlag registers --by on cmd, defaulting to the configured actor
func actorFlag(cmd *cobra.Command, dest *string, usage string) {
	cmd.Flags().StringVar(dest, "by", "", usage+" (default: configured actor)")
}

func actorOr(by string) string {
	if strings.TrimSpace(by) != "" {
		return by
	}
	return cfg.Actor
}

// resolveCycle accepts a cycle ID or part of a cycle name
func resolveCycle(cmd *cobra.Command, ref string) (*types.Cycle, error) {
	return store.ResolveCycle(cmd.Context(), ref)
}

// splitList parses a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// printCounts prints a count map sorted by key
func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("  %s:\n", title)
	for _, k := range keys {
		fmt.Printf("    %-20s %d\n", k, counts[k])
	}
}
