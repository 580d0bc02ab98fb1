package tichu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tichu-server/internal/tichu"
)

func TestDrainEventsEmptiesTheLog(t *testing.T) {
	assert := assert.New(t)

	g, ids := newTestGame(t)
	require.NoError(t, g.StartGame())
	require.NoError(t, g.CallGrandTichu(ids[2]))

	events := g.DrainEvents()
	require.NotEmpty(t, events)

	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(types, tichu.EventDeal)
	assert.Contains(types, tichu.EventGrandTichu)

	assert.Empty(g.DrainEvents(), "second drain is empty")
}
