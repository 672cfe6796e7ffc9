package chain

import "github.com/mithrel/diarychain/pkg/api"

// FindByFilename returns the first block whose metadata filename equals name.
// Matching is exact and case-sensitive.
func FindByFilename(c api.Chain, name string) (api.Block, bool) {
	for _, b := range c {
		if b.Metadata().Filename == name {
			return b, true
		}
	}
	return api.Block{}, false
}

// Filenames lists the metadata filenames in chain order.
func Filenames(c api.Chain) []string {
	out := make([]string, 0, len(c))
	for _, b := range c {
		out = append(out, b.Filename)
	}
	return out
}
