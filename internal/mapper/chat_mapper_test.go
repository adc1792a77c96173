package mapper

import (
	"testing"

	"realtime-chat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeParticipantsOrderInsensitive(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	forward := NormalizeParticipants([]uuid.UUID{a, b, c})
	reversed := NormalizeParticipants([]uuid.UUID{c, b, a})

	assert.Equal(t, forward, reversed)
	assert.Equal(t, ParticipantsKey(forward), ParticipantsKey(reversed))
}

func TestNormalizeParticipantsDedupes(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	normalized := NormalizeParticipants([]uuid.UUID{a, b, a, b, a})
	assert.Len(t, normalized, 2)
	assert.Equal(t,
		ParticipantsKey(NormalizeParticipants([]uuid.UUID{a, b})),
		ParticipantsKey(normalized),
	)
}

func TestParticipantsKeyDistinctSetsDiffer(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	keyAB := ParticipantsKey(NormalizeParticipants([]uuid.UUID{a, b}))
	keyAC := ParticipantsKey(NormalizeParticipants([]uuid.UUID{a, c}))
	assert.NotEqual(t, keyAB, keyAC)
}

func TestChatMapperRoundTrip(t *testing.T) {
	m := NewChatMapper()
	a := uuid.New()
	b := uuid.New()

	chat := &entity.Chat{
		Id:             uuid.New(),
		ParticipantIds: []uuid.UUID{b, a, b},
	}

	model := m.ToModel(chat)
	require.Len(t, model.Participants, 2)
	assert.Equal(t, ParticipantsKey(NormalizeParticipants([]uuid.UUID{a, b})), model.ParticipantsKey)
	for _, p := range model.Participants {
		assert.Equal(t, chat.Id, p.ChatId)
	}

	back := m.ToEntity(model)
	assert.Equal(t, chat.Id, back.Id)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, back.ParticipantIds)
}
