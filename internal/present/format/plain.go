package format

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mithrel/diarychain/pkg/api"
)

// TSV columns: index, filename, timestamp, hash, previous_hash
var headerLine = "index\tfilename\ttimestamp\thash\tprevious_hash\n"

func esc(field string) string {
	field = strings.ReplaceAll(field, "\t", "\\t")
	field = strings.ReplaceAll(field, "\n", "\\n")
	return field
}

// ShortHash trims a hex digest for display.
func ShortHash(h string, n int) string {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[:n]
}

func plainLine(b api.Block, hashWidth int) string {
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\n",
		b.Index, esc(b.Filename), esc(b.Timestamp), ShortHash(b.DataHash, hashWidth), ShortHash(b.PreviousHash, hashWidth))
}

// WritePlainBlocks writes an aligned table. hashWidth of zero prints full digests.
func WritePlainBlocks(w io.Writer, blocks []api.Block, headers bool, hashWidth int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if headers {
		_, _ = io.WriteString(tw, headerLine)
	}
	for _, b := range blocks {
		_, _ = io.WriteString(tw, plainLine(b, hashWidth))
	}
	return tw.Flush()
}

func WritePlainBlock(w io.Writer, b api.Block, headers bool) error {
	return WritePlainBlocks(w, []api.Block{b}, headers, 0)
}
