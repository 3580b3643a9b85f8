package codec

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fracmul/internal/ir"
)

func bakeryAlphabet(t *testing.T) *Alphabet {
	t.Helper()
	a, err := NewAlphabet([]ir.Name{"flour", "sugar", "apples", "apple-cake", "oranges", "cherries"})
	require.NoError(t, err)
	return a
}

func TestNewAlphabet_AssignsPrimesInOrder(t *testing.T) {
	a := bakeryAlphabet(t)

	assert.Equal(t, 6, a.Len())
	assert.Equal(t, []Assignment{
		{Name: "flour", Prime: 2},
		{Name: "sugar", Prime: 3},
		{Name: "apples", Prime: 5},
		{Name: "apple-cake", Prime: 7},
		{Name: "oranges", Prime: 11},
		{Name: "cherries", Prime: 13},
	}, a.Assignments())
}

func TestNewAlphabet_RejectsDuplicates(t *testing.T) {
	_, err := NewAlphabet([]ir.Name{"a", "b", "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
}

func TestFromRules_FirstAppearance(t *testing.T) {
	rules := []ir.Rule{
		{Left: ir.Multiset{"b", "a"}, Right: ir.Multiset{"c", "b"}},
		{Left: ir.Multiset{"d"}, Right: ir.Multiset{"a", "e"}},
	}

	a := FromRules(rules)
	assert.Equal(t, []ir.Name{"b", "a", "c", "d", "e"}, a.Names())
}

func TestFromRules_Empty(t *testing.T) {
	a := FromRules(nil)
	assert.Equal(t, 0, a.Len())

	v, err := a.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())
}

func TestDecode_BakeryScenario(t *testing.T) {
	a := bakeryAlphabet(t)

	got := a.Decode(big.NewInt(21450))
	assert.Equal(t, ir.Multiset{"flour", "sugar", "apples", "apples", "oranges", "cherries"}, got)
}

func TestEncode_BakeryScenario(t *testing.T) {
	a := bakeryAlphabet(t)

	v, err := a.Encode(ir.Multiset{"cherries", "apples", "flour", "oranges", "apples", "sugar"})
	require.NoError(t, err)
	assert.Equal(t, int64(21450), v.Int64())
}

func TestEncode_Empty(t *testing.T) {
	a := bakeryAlphabet(t)

	v, err := a.Encode(ir.Multiset{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Int64())
}

func TestEncode_UnknownSymbol(t *testing.T) {
	a := bakeryAlphabet(t)

	_, err := a.Encode(ir.Multiset{"flour", "butter"})
	require.Error(t, err)
	assert.True(t, IsUnknownSymbol(err))

	var ue *UnknownSymbolError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ir.Name("butter"), ue.Name)
}

func TestDecode_DropsForeignFactors(t *testing.T) {
	a := bakeryAlphabet(t)

	// 17 and 19 are not assigned to any name.
	got := a.Decode(big.NewInt(2 * 2 * 17 * 19))
	assert.Equal(t, ir.Multiset{"flour", "flour"}, got)
}

func TestDecode_NonPositive(t *testing.T) {
	a := bakeryAlphabet(t)

	assert.Empty(t, a.Decode(big.NewInt(0)))
	assert.Empty(t, a.Decode(big.NewInt(-6)))
	assert.Empty(t, a.Decode(nil))
	assert.Empty(t, a.Decode(big.NewInt(1)))
}

func TestDecode_DoesNotMutateInput(t *testing.T) {
	a := bakeryAlphabet(t)
	v := big.NewInt(21450)

	a.Decode(v)
	assert.Equal(t, int64(21450), v.Int64())
}

// TestRoundTrip checks decode(encode(M)) == M up to reordering for random
// multisets, including multiplicities large enough to leave int64 range.
func TestRoundTrip(t *testing.T) {
	a := bakeryAlphabet(t)
	names := a.Names()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		var m ir.Multiset
		size := rng.Intn(120)
		for j := 0; j < size; j++ {
			m = append(m, names[rng.Intn(len(names))])
		}

		v, err := a.Encode(m)
		require.NoError(t, err)
		assert.True(t, m.Equal(a.Decode(v)), "round trip failed for %v", m)
	}
}

func TestCompile_RuleToFraction(t *testing.T) {
	a := bakeryAlphabet(t)

	f, err := a.Compile(ir.Rule{
		Left:  ir.Multiset{"flour", "sugar", "apples"},
		Right: ir.Multiset{"apple-cake"},
	})
	require.NoError(t, err)
	assert.Equal(t, "7/30", f.String())
}

func TestDecompile_FractionToRule(t *testing.T) {
	a := bakeryAlphabet(t)

	r := a.Decompile(ir.Fraction{Num: big.NewInt(7), Den: big.NewInt(30)})
	assert.Equal(t, ir.Multiset{"flour", "sugar", "apples"}, r.Left)
	assert.Equal(t, ir.Multiset{"apple-cake"}, r.Right)
}

func TestCompile_UnknownSymbol(t *testing.T) {
	a := bakeryAlphabet(t)

	_, err := a.Compile(ir.Rule{Left: ir.Multiset{"flour"}, Right: ir.Multiset{"pie"}})
	assert.True(t, IsUnknownSymbol(err))
}
