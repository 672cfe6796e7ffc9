package present

import (
	"io"

	"github.com/mithrel/diarychain/internal/present/format"
	"github.com/mithrel/diarychain/pkg/api"
)

type Mode int

const (
	ModePlain Mode = iota
	ModeJSON
	ModeNDJSON
	ModeCSV
)

type Options struct {
	Mode       Mode
	JSONIndent bool
	Headers    bool
	// HashWidth truncates digests in plain output; zero prints them whole.
	HashWidth int
}

// ParseMode parses "plain", "json", "ndjson" or "csv".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "plain", "":
		return ModePlain, true
	case "json":
		return ModeJSON, true
	case "ndjson":
		return ModeNDJSON, true
	case "csv":
		return ModeCSV, true
	default:
		return ModePlain, false
	}
}

// Modes lists the accepted mode names for flag help and completion.
func Modes() []string { return []string{"plain", "json", "ndjson", "csv"} }

// RenderBlocks renders a list of blocks according to options.
func RenderBlocks(w io.Writer, blocks []api.Block, opts Options) error {
	switch opts.Mode {
	case ModeJSON:
		return format.WriteJSONBlocks(w, blocks, opts.JSONIndent)
	case ModeNDJSON:
		return format.WriteNDJSONBlocks(w, blocks)
	case ModeCSV:
		return format.WriteCSV(w, blocks)
	default:
		return format.WritePlainBlocks(w, blocks, opts.Headers, opts.HashWidth)
	}
}

// RenderBlock renders a single block according to options.
func RenderBlock(w io.Writer, b api.Block, opts Options) error {
	switch opts.Mode {
	case ModeJSON:
		return format.WriteJSONBlock(w, b, opts.JSONIndent)
	case ModeNDJSON:
		return format.WriteNDJSONBlock(w, b)
	case ModeCSV:
		return format.WriteCSV(w, api.Chain{b})
	default:
		return format.WritePlainBlock(w, b, opts.Headers)
	}
}
