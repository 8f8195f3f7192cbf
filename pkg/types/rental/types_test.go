package rental

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordClone(t *testing.T) {
	r := Record{"rent_yen": 98000, "layout_type": "1LDK"}
	c := r.Clone()
	c["rent_yen"] = 1
	assert.Equal(t, 98000, r["rent_yen"])
	assert.Equal(t, 1, c["rent_yen"])
}

func TestRecordNumberCoercion(t *testing.T) {
	r := Record{
		"a": 98000,
		"b": float64(8000),
		"c": int64(12),
		"d": "not a number",
		"e": nil,
	}
	for key, want := range map[string]float64{"a": 98000, "b": 8000, "c": 12} {
		got, ok := r.Number(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	for _, key := range []string{"d", "e", "missing"} {
		_, ok := r.Number(key)
		assert.False(t, ok, key)
	}
}

func TestRecordHasDistinguishesNilFromAbsent(t *testing.T) {
	r := Record{"x": nil}
	assert.True(t, r.Has("x"))
	assert.False(t, r.Has("y"))
}

func TestConfidenceUsable(t *testing.T) {
	assert.True(t, ConfidenceHigh.Usable())
	assert.True(t, ConfidenceMid.Usable())
	assert.True(t, ConfidenceLow.Usable())
	assert.False(t, ConfidenceNone.Usable())
	assert.False(t, Confidence("bogus").Usable())
}

func TestNoBenchmark(t *testing.T) {
	bm := NoBenchmark()
	assert.Nil(t, bm.RentYen)
	assert.Equal(t, ConfidenceNone, bm.Confidence)
	assert.Equal(t, MatchNone, bm.MatchedLevel)
	assert.Zero(t, bm.SampleCount)
}
