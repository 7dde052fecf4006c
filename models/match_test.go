package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatusIsFinal(t *testing.T) {
	assert.True(t, MatchStatusCompleted.IsFinal())
	assert.True(t, MatchStatusForfeit.IsFinal())

	for _, s := range []MatchStatus{MatchStatusPending, MatchStatusScheduled, MatchStatusInProgress, MatchStatusPendingConfirmation} {
		assert.False(t, s.IsFinal(), "status %s", s)
	}
}

func TestTournamentLevelValid(t *testing.T) {
	for _, l := range append(LevelLadder, LevelSpecial) {
		assert.True(t, l.Valid(), "level %s", l)
	}
	assert.False(t, TournamentLevel("continental").Valid())
	assert.False(t, TournamentLevel("").Valid())
}

func TestTournamentLevelHasGroups(t *testing.T) {
	assert.True(t, LevelCommunity.HasGroups())
	assert.True(t, LevelCounty.HasGroups())
	assert.True(t, LevelRegional.HasGroups())
	assert.False(t, LevelNational.HasGroups())
	assert.False(t, LevelSpecial.HasGroups())
}

func TestMatchParticipants(t *testing.T) {
	p1, p2 := 10, 20
	m := &Match{Player1ID: &p1, Player2ID: &p2}

	assert.True(t, m.HasParticipant(10))
	assert.True(t, m.HasParticipant(20))
	assert.False(t, m.HasParticipant(30))

	opp := m.Opponent(10)
	assert.NotNil(t, opp)
	assert.Equal(t, 20, *opp)
	opp = m.Opponent(20)
	assert.Equal(t, 10, *opp)
	assert.Nil(t, m.Opponent(30))

	bye := &Match{ByePlayerID: &p1}
	assert.False(t, bye.HasParticipant(10))
	assert.Nil(t, bye.Opponent(10))
}
