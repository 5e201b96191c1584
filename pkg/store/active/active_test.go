package active

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func activate(t *testing.T, s *store.Store, limits models.Limits, convo string, a, b models.Identity) (bool, error) {
	t.Helper()
	txn := s.Begin()
	defer txn.Discard()
	started, err := EnsureActivated(txn, limits, []byte(convo), a, []byte(a+"-name"), b, []byte(b+"-name"))
	if err != nil {
		return false, err
	}
	return started, txn.Commit()
}

func TestEnsureActivatedIsIdempotent(t *testing.T) {
	s := newStore(t)
	limits := models.DefaultLimits()

	started, err := activate(t, s, limits, "c1", "A", "B")
	require.NoError(t, err)
	assert.True(t, started)

	started, err = activate(t, s, limits, "c1", "A", "B")
	require.NoError(t, err)
	assert.False(t, started)

	active, err := IsActive(s.Reader(), []byte("c1"))
	require.NoError(t, err)
	assert.True(t, active)

	for _, id := range []models.Identity{"A", "B"} {
		list, err := List(s.Reader(), id)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, models.ActiveConversation{
			Initiator:     "A",
			InitiatorName: []byte("A-name"),
			Recipient:     "B",
			RecipientName: []byte("B-name"),
		}, list[0])
	}
}

func TestEnsureActivatedCapacity(t *testing.T) {
	s := newStore(t)
	limits := models.DefaultLimits()
	limits.MaxActiveConversationAmount = 2

	_, err := activate(t, s, limits, "c1", "A", "B")
	require.NoError(t, err)
	_, err = activate(t, s, limits, "c2", "A", "C")
	require.NoError(t, err)

	// A is full, D is empty
	_, err = activate(t, s, limits, "c3", "D", "A")
	assert.ErrorIs(t, err, models.ErrConversationLimitReached)

	active, err := IsActive(s.Reader(), []byte("c3"))
	require.NoError(t, err)
	assert.False(t, active)
	list, err := List(s.Reader(), "D")
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = List(s.Reader(), "A")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEnsureActivatedConvoIdBound(t *testing.T) {
	s := newStore(t)
	limits := models.DefaultLimits()

	_, err := activate(t, s, limits, "0123456789", "A", "B")
	assert.NoError(t, err)
	_, err = activate(t, s, limits, "0123456789a", "A", "B")
	assert.ErrorIs(t, err, models.ErrInvalidConvoId)
}

func TestSelfConversationHasOneRecord(t *testing.T) {
	s := newStore(t)
	started, err := activate(t, s, models.DefaultLimits(), "me", "A", "A")
	require.NoError(t, err)
	assert.True(t, started)

	list, err := List(s.Reader(), "A")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListUnknownIdentity(t *testing.T) {
	s := newStore(t)
	list, err := List(s.Reader(), "ghost")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
