package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogLookups(t *testing.T) {
	assert.True(t, IsCategory("electronics"))
	assert.False(t, IsCategory("food"))
	assert.True(t, IsCondition("like_new"))
	assert.False(t, IsCondition("broken"))
	assert.True(t, IsDistrict("Tazibouo Piscine"))
	assert.False(t, IsDistrict("tazibouo piscine"))
	assert.Len(t, Districts, 29)
	assert.Equal(t, "Auto & Moto", CategoryLabel("vehicles"))
	assert.Equal(t, "unknown", CategoryLabel("unknown"))
}

func TestPackFor(t *testing.T) {
	p, ok := PackFor(10)
	assert.True(t, ok)
	assert.Equal(t, int64(1500), p.Price)

	_, ok = PackFor(7)
	assert.False(t, ok)
}
