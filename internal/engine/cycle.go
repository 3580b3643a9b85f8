package engine

import "math/big"

// CycleDetector remembers every accumulator a run has visited.
//
// Step is a pure function of the accumulator, so once a value repeats the
// run is locked in a loop and can never halt. Detecting the repeat turns an
// endless run into a reportable error.
//
// Memory grows with the number of steps, which is why detection is opt-in.
type CycleDetector struct {
	seen map[string]int64 // accumulator bytes -> seq at which it was produced
}

// NewCycleDetector creates an empty detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{seen: make(map[string]int64)}
}

// Record stores acc as produced at seq. Returns the earlier seq and true
// if acc had already been recorded; the earlier entry is kept.
func (c *CycleDetector) Record(acc *big.Int, seq int64) (int64, bool) {
	key := string(acc.Bytes())
	if first, ok := c.seen[key]; ok {
		return first, true
	}
	c.seen[key] = seq
	return 0, false
}

