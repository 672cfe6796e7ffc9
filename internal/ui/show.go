package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/mithrel/diarychain/pkg/api"
)

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	labelStyle = lipgloss.NewStyle().Faint(true)
)

// Styled reports whether w is a terminal worth colouring.
func Styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// OK renders a success marker, coloured when styled is true.
func OK(styled bool) string {
	if styled {
		return okStyle.Render("OK")
	}
	return "OK"
}

// FAIL renders a failure marker.
func FAIL(styled bool) string {
	if styled {
		return failStyle.Render("FAIL")
	}
	return "FAIL"
}

// VerifiedLine is printed for every correctly linked block.
func VerifiedLine(b api.Block, styled bool) string {
	return fmt.Sprintf("%s block %d %s", OK(styled), b.Index, b.Filename)
}

// FormatBlock returns a human-readable detail view of a block,
// matching the `check` output.
func FormatBlock(b api.Block, styled bool) string {
	label := func(s string) string {
		if styled {
			return labelStyle.Render(s)
		}
		return s
	}
	return fmt.Sprintf(
		"%s %d\n%s %s\n%s %s\n%s %s\n%s %s\n",
		label("Index:"), b.Index,
		label("Filename:"), b.Filename,
		label("Timestamp:"), b.Timestamp,
		label("Hash:"), b.DataHash,
		label("Previous:"), b.PreviousHash,
	)
}
