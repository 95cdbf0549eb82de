package languageutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	assert.Equal(t, "Outerwear", Title("outerwear"))
	assert.Equal(t, "Headwear", Title("headwear"))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "shoes", NormalizeKey("  SHOES "))
	assert.Equal(t, "", NormalizeKey("   "))
}
