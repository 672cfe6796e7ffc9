package format

import (
	"bufio"
	"io"
	"strconv"

	"github.com/mithrel/diarychain/pkg/api"
)

// CSVHeader is the first line of every export.
const CSVHeader = "index,filename,timestamp,hash,previous_hash"

// WriteCSV writes one row per block in chain order. Fields are emitted
// verbatim without quoting, so a filename containing a comma produces an
// extra column.
func WriteCSV(w io.Writer, c api.Chain) error {
	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, CSVHeader+"\n"); err != nil {
		return err
	}
	for _, b := range c {
		meta := b.Metadata()
		line := strconv.FormatUint(b.Index, 10) + "," + meta.Filename + "," + meta.Timestamp + "," + b.DataHash + "," + b.PreviousHash + "\n"
		if _, err := io.WriteString(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
