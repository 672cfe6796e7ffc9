package format

import (
	"encoding/json"
	"io"

	"github.com/mithrel/diarychain/pkg/api"
)

func WriteJSONBlocks(w io.Writer, blocks []api.Block, indent bool) error {
	if blocks == nil {
		blocks = []api.Block{}
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(blocks)
}

func WriteJSONBlock(w io.Writer, b api.Block, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(b)
}
