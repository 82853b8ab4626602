package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/search"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	keyStyle    = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true)
)

// promptConfirm asks on the terminal. Without one, broad searches are declined.
func promptConfirm(_ context.Context, msg string) bool {
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stderr.Fd()) {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s %s ", msg, mutedStyle.Render("[y/N]"))
	response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func printResult(w io.Writer, res *search.Result) {
	noun := "results"
	if len(res.Entities) == 1 {
		noun = "result"
	}
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("%d %s", len(res.Entities), noun)),
		mutedStyle.Render(res.ID.String()))
	for _, e := range res.Entities {
		fmt.Fprintf(w, "  %s  %s\n", keyStyle.Render(e.Key()), formatFields(e))
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "%s %s: %v\n", errorStyle.Render("!"), e.Strategy, e.Err)
	}
}

// formatFields renders the non-null fields in name order.
func formatFields(e db.Entity) string {
	plain := e.Plain()["fields"].(map[string]any)
	names := make([]string, 0, len(plain))
	for name, v := range plain {
		if v != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, plain[name])
	}
	return mutedStyle.Render(strings.Join(parts, " "))
}
