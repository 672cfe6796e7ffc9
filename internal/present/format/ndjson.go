package format

import (
	"encoding/json"
	"io"

	"github.com/mithrel/diarychain/pkg/api"
)

// WriteNDJSONBlocks writes blocks as newline-delimited JSON objects.
func WriteNDJSONBlocks(w io.Writer, blocks []api.Block) error {
	enc := json.NewEncoder(w)
	for _, b := range blocks {
		if err := enc.Encode(b); err != nil {
			return err
		}
	}
	return nil
}

// WriteNDJSONBlock writes a single block as one JSON line.
func WriteNDJSONBlock(w io.Writer, b api.Block) error {
	return json.NewEncoder(w).Encode(b)
}
