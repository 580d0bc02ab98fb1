package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRegisterAndLookup(t *testing.T) {
	assert := assert.New(t)

	d := NewPlayerDirectory()
	loc := PlayerLocation{PlayerID: uuid.New(), Name: "Anna", SessionID: "ABCD", Seat: 1}
	d.Register(loc)

	got, err := d.Lookup(loc.PlayerID)
	require.NoError(t, err)
	assert.Equal(loc, got)

	_, err = d.Lookup(uuid.New())
	require.Error(t, err)
	assert.Contains(err.Error(), "PLAYER_NOT_FOUND")
}

func TestDirectoryRemove(t *testing.T) {
	d := NewPlayerDirectory()
	loc := PlayerLocation{PlayerID: uuid.New(), Name: "Anna", SessionID: "ABCD", Seat: 0}
	d.Register(loc)

	d.Remove(loc.PlayerID)
	_, err := d.Lookup(loc.PlayerID)
	assert.Error(t, err)
}

func TestDirectoryRemoveSession(t *testing.T) {
	assert := assert.New(t)

	d := NewPlayerDirectory()
	inSession := PlayerLocation{PlayerID: uuid.New(), Name: "Anna", SessionID: "ABCD", Seat: 0}
	elsewhere := PlayerLocation{PlayerID: uuid.New(), Name: "Ben", SessionID: "WXYZ", Seat: 0}
	d.Register(inSession)
	d.Register(elsewhere)

	d.RemoveSession("ABCD")

	_, err := d.Lookup(inSession.PlayerID)
	assert.Error(err)
	_, err = d.Lookup(elsewhere.PlayerID)
	assert.NoError(err)

	assert.Len(d.All(), 1)
}
