package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mithrel/diarychain/pkg/api"
)

func TestFormatBlock_Unstyled(t *testing.T) {
	b := api.Block{Index: 3, Filename: "d.md", Timestamp: "ts", DataHash: "h3", PreviousHash: "h2"}
	got := FormatBlock(b, false)
	assert.Equal(t, "Index: 3\nFilename: d.md\nTimestamp: ts\nHash: h3\nPrevious: h2\n", got)
}

func TestMarkers_Unstyled(t *testing.T) {
	assert.Equal(t, "OK", OK(false))
	assert.Equal(t, "FAIL", FAIL(false))
	assert.Equal(t, "OK block 0 a.md", VerifiedLine(api.Block{Filename: "a.md"}, false))
	assert.False(t, Styled(&bytes.Buffer{}))
}
