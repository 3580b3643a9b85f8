package program

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"math/big"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/ir"
)

// TraceHasher computes the content hash of a run incrementally, so streamed
// runs hash the same as materialized ones.
//
// Format: SHA256(DomainTrace + 0x00 + programHash + 0x00, then per step
// seq:u64 rule:u64 len(after):u64 after, then final as len:u64 bytes,
// halted:u8 and steps:u64). Integers are big-endian; accumulators are their
// big-endian magnitude bytes.
type TraceHasher struct {
	h   hash.Hash
	buf [8]byte
}

// NewTraceHasher starts a trace hash bound to a program hash.
func NewTraceHasher(programHash string) *TraceHasher {
	t := &TraceHasher{h: sha256.New()}
	t.h.Write([]byte(ir.DomainTrace))
	t.h.Write([]byte{0x00})
	t.h.Write([]byte(programHash))
	t.h.Write([]byte{0x00})
	return t
}

func (t *TraceHasher) u64(v uint64) {
	binary.BigEndian.PutUint64(t.buf[:], v)
	t.h.Write(t.buf[:])
}

func (t *TraceHasher) int(v *big.Int) {
	b := v.Bytes()
	t.u64(uint64(len(b)))
	t.h.Write(b)
}

// Add folds one step into the hash.
func (t *TraceHasher) Add(rec engine.StepRecord) {
	t.u64(uint64(rec.Seq))
	t.u64(uint64(rec.Rule))
	t.int(rec.After)
}

// Sum closes the hash with the run outcome and returns it hex-encoded.
func (t *TraceHasher) Sum(out engine.Outcome) (string, error) {
	if out.Final == nil {
		return "", errors.New("hash trace: missing final accumulator")
	}
	t.int(out.Final)
	if out.Halted {
		t.h.Write([]byte{1})
	} else {
		t.h.Write([]byte{0})
	}
	t.u64(uint64(out.Steps))
	return hex.EncodeToString(t.h.Sum(nil)), nil
}
