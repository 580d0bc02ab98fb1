package tichu_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tichu-server/internal/tichu"
)

func TestClientStateHidesOtherHands(t *testing.T) {
	assert := assert.New(t)

	g, _ := newTestGame(t)
	require.NoError(t, g.StartGame())

	for seat := 0; seat < 4; seat++ {
		state := g.ClientStateFor(seat)
		assert.Equal(seat, state.Seat)
		assert.Len(state.Hand, tichu.HandSize)

		// Other seats only expose counts.
		for _, other := range state.Players {
			assert.Equal(tichu.HandSize, other.HandCount)
		}
	}
}

func TestClientStateCarriesPileAndScores(t *testing.T) {
	assert := assert.New(t)

	g, ids := newTestGame(t)
	intoRound(g, [4]tichu.Hand{
		{card(tichu.RankTwo, tichu.Red), card(tichu.RankNine, tichu.Red)},
		{card(tichu.RankThree, tichu.Red)},
		{card(tichu.RankFour, tichu.Red)},
		{card(tichu.RankFive, tichu.Red)},
	}, 0)
	g.ScoreA = 120
	g.ScoreB = 85

	require.NoError(t, g.PlayCombination(ids[0], []tichu.Card{card(tichu.RankTwo, tichu.Red)}, nil))

	state := g.ClientStateFor(1)
	require.NotNil(t, state.PileTop)
	assert.Equal(tichu.KindSingle, state.PileTop.Kind)
	assert.Equal(1, state.NextSeat)
	assert.Equal(0, state.LastSeat)
	assert.Equal(120, state.ScoreA)
	assert.Equal(85, state.ScoreB)
}

func TestGameStateSerializationRoundTrip(t *testing.T) {
	assert := assert.New(t)

	g, ids := newTestGame(t)
	require.NoError(t, g.StartGame())
	require.NoError(t, g.CallGrandTichu(ids[3]))
	g.DrainEvents()

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var restored tichu.Game
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(g.ID, restored.ID)
	assert.Equal(g.Phase, restored.Phase)
	assert.Equal(g.ScoreA, restored.ScoreA)
	assert.Equal(g.NextSeat, restored.NextSeat)
	require.Len(t, restored.Players, 4)
	for i, p := range restored.Players {
		assert.Equal(g.Players[i].ID, p.ID)
		assert.Equal(g.Players[i].Name, p.Name)
		assert.Equal(g.Players[i].Seat, p.Seat)
		assert.Equal(g.Players[i].Hand, p.Hand)
		assert.Equal(g.Players[i].CalledGrandTichu, p.CalledGrandTichu)
	}
}
