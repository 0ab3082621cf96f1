package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBookingReference_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref, err := NewBookingReference()
		assert.NoError(t, err)
		assert.True(t, ValidReference(ref), "generated reference %q is malformed", ref)
		assert.True(t, strings.HasPrefix(ref, ReferencePrefix))
		seen[ref] = true
	}
	// Not a uniqueness guarantee, but 100 collisions would mean the
	// generator is broken.
	assert.Greater(t, len(seen), 1)
}

func TestNewBookingReference_NoAmbiguousCharacters(t *testing.T) {
	for i := 0; i < 50; i++ {
		ref, err := NewBookingReference()
		assert.NoError(t, err)
		suffix := strings.TrimPrefix(ref, ReferencePrefix)
		assert.NotContains(t, suffix, "I")
		assert.NotContains(t, suffix, "O")
		assert.NotContains(t, suffix, "0")
		assert.NotContains(t, suffix, "1")
	}
}

func TestNormalizeReference(t *testing.T) {
	assert.Equal(t, "FLY2A-AB12CD", NormalizeReference(" fly2a-ab12cd "))
	assert.Equal(t, "FLY2A-AB12CD", NormalizeReference("FLY2A-AB12CD"))
	assert.Equal(t, "", NormalizeReference("   "))
}

func TestValidReference(t *testing.T) {
	assert.True(t, ValidReference("FLY2A-AB12CD"))
	assert.False(t, ValidReference("fly2a-ab12cd"), "validation expects normalized input")
	assert.False(t, ValidReference("FLY2A-AB12C"))
	assert.False(t, ValidReference("FLY2A-AB12CDE"))
	assert.False(t, ValidReference("XX-AB12CD"))
	assert.False(t, ValidReference(""))
}
