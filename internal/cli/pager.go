package cli

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

const defaultPager = "less -FRSX"

// pagerCommand picks the pager: list.pager, then $PAGER, then less.
// "none" or "cat" disables paging.
func pagerCommand(configured string) string {
	p := strings.TrimSpace(configured)
	if p == "" {
		p = strings.TrimSpace(os.Getenv("PAGER"))
	}
	if p == "" {
		p = defaultPager
	}
	if p == "none" || p == "cat" {
		return ""
	}
	return p
}

// withPager runs write against out directly unless out is a terminal and a
// pager is configured, in which case the output is piped through it.
func withPager(ctx context.Context, pager string, out, errOut io.Writer, write func(io.Writer) error) error {
	tty, ok := out.(*os.File)
	if !ok || pager == "" || !term.IsTerminal(int(tty.Fd())) {
		return write(out)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", pager)
	cmd.Stdout = tty
	cmd.Stderr = errOut
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return write(out)
	}
	if err := cmd.Start(); err != nil {
		return write(out)
	}
	werr := write(stdin)
	_ = stdin.Close()
	if err := cmd.Wait(); err != nil && werr == nil {
		return err
	}
	return werr
}
