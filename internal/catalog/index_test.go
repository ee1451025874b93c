package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quotedesk/internal"
)

func products() []internal.ProductRecord {
	return []internal.ProductRecord{
		{ID: 1, Name: "Felt"},
		{ID: 2, Name: "Felt Rug"},
		{ID: 3, Name: "Custom Felt Rug"},
		{ID: 4, Name: "Acrylic Tabletop"},
	}
}

func TestMatchTextLongestWins(t *testing.T) {
	idx := BuildIndex(products())

	p, ok := idx.MatchText("Hi, I'd like a custom felt rug, 48 x 36 please")
	assert.True(t, ok)
	assert.Equal(t, int64(3), p.ID)

	p, ok = idx.MatchText("do you sell a FELT RUG?")
	assert.True(t, ok)
	assert.Equal(t, int64(2), p.ID)

	_, ok = idx.MatchText("how much is shipping?")
	assert.False(t, ok)
}

func TestMatchTextTieBrokenByInsertionOrder(t *testing.T) {
	idx := BuildIndex([]internal.ProductRecord{
		{ID: 10, Name: "Rug"},
		{ID: 11, Name: "Mat"},
	})
	p, ok := idx.MatchText("one rug and one mat")
	assert.True(t, ok)
	assert.Equal(t, int64(10), p.ID)
}

func TestResolveNameEitherDirection(t *testing.T) {
	idx := BuildIndex(products())

	p, ok := idx.ResolveName("felt rug")
	assert.True(t, ok)
	assert.Equal(t, int64(3), p.ID) // longest catalog name containing it

	p, ok = idx.ResolveName("large acrylic tabletop with rounded corners")
	assert.True(t, ok)
	assert.Equal(t, int64(4), p.ID)

	_, ok = idx.ResolveName("garden gnome")
	assert.False(t, ok)
}
