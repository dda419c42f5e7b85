package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"

	"github.com/ramendr/drenv/pkg/kubectl"
)

// usageErrors are returned for invalid drenv arguments.
var usageErrors = []error{
	ErrWatchFiles,
	ErrInvalidKubectl,
	ErrStdinTerminal,
	kubectl.ErrInvalidAnnotation,
}

// ErrorHandler prints err for fang. Usage errors are followed by a hint to
// read the help, and unknown flags by a reminder that kubectl flags go
// after "--".
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(err.Error())))
	mustN(fmt.Fprintln(w))

	if !isUsageError(err) {
		return
	}

	mustN(fmt.Fprintln(w, lipgloss.JoinHorizontal(
		lipgloss.Left,
		styles.ErrorText.UnsetWidth().Render("Try"),
		styles.Program.Flag.Render("--help"),
		styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
	)))

	if isUnknownFlag(err) {
		mustN(fmt.Fprintln(w, lipgloss.JoinHorizontal(
			lipgloss.Left,
			styles.ErrorText.UnsetWidth().Render("Pass kubectl flags after"),
			styles.Program.Flag.PaddingLeft(1).Render("--"),
			styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().Render("."),
		)))
	}

	mustN(fmt.Fprintln(w))
}

// XXX: cobra does not type its usage errors, so they are detected by prefix.
// See: https://github.com/spf13/cobra/pull/2266
func isUsageError(err error) bool {
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	s := err.Error()
	for _, prefix := range []string{
		"flag needs an argument:",
		"unknown flag:",
		"unknown shorthand flag:",
		"unknown command",
		"invalid argument",
		"accepts ",
		"requires at least ",
		"requires exactly ",
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func isUnknownFlag(err error) bool {
	s := err.Error()

	return strings.HasPrefix(s, "unknown flag:") || strings.HasPrefix(s, "unknown shorthand flag:")
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}
