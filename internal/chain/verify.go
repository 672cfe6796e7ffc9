package chain

import (
	"fmt"

	"github.com/mithrel/diarychain/pkg/api"
)

// IntegrityViolation identifies the first block whose link is broken.
// It is a verification result, returned inside Report.
type IntegrityViolation struct {
	Index  uint64
	Reason string
}

func (v *IntegrityViolation) Error() string {
	return fmt.Sprintf("block %d: %s", v.Index, v.Reason)
}

// Report is the outcome of Verify.
type Report struct {
	Blocks    int
	Valid     bool
	Violation *IntegrityViolation
}

// Err returns the violation as an error, or nil when the chain is valid.
func (r Report) Err() error {
	if r.Violation == nil {
		return nil
	}
	return r.Violation
}

type verifyOptions struct {
	strict bool
	visit  func(api.Block)
}

// VerifyOption tunes Verify.
type VerifyOption func(*verifyOptions)

// Strict additionally checks the genesis sentinel, index contiguity and
// agreement between stored metadata and the canonical block fields.
func Strict() VerifyOption {
	return func(o *verifyOptions) { o.strict = true }
}

// WithVisitor is called for every block that passed its checks, in order.
func WithVisitor(fn func(api.Block)) VerifyOption {
	return func(o *verifyOptions) { o.visit = fn }
}

// Verify scans c forward and stops at the first broken link.
func Verify(c api.Chain, opts ...VerifyOption) Report {
	var o verifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	for i := range c {
		if v := checkBlock(c, i, o.strict); v != nil {
			return Report{Blocks: len(c), Violation: v}
		}
		if o.visit != nil {
			o.visit(c[i])
		}
	}
	return Report{Blocks: len(c), Valid: true}
}

func checkBlock(c api.Chain, i int, strict bool) *IntegrityViolation {
	cur := c[i]
	if strict {
		if cur.Index != uint64(i) {
			return &IntegrityViolation{Index: cur.Index, Reason: fmt.Sprintf("index out of sequence, expected %d", i)}
		}
		if i == 0 && cur.PreviousHash != api.SentinelHash {
			return &IntegrityViolation{Index: cur.Index, Reason: "genesis previous_hash is not the sentinel"}
		}
		if stored, ok := cur.StoredMetadata(); ok && stored != cur.Metadata() {
			return &IntegrityViolation{Index: cur.Index, Reason: "metadata disagrees with block fields"}
		}
	}
	if i == 0 {
		return nil
	}
	if cur.PreviousHash != c[i-1].DataHash {
		return &IntegrityViolation{Index: cur.Index, Reason: "previous_hash does not match predecessor data_hash"}
	}
	return nil
}
