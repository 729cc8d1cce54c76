package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartConflictsWhileActive(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	first, err := s.Start("g1", "m1")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = s.Start("g1", "m1")
	assert.ErrorIs(t, err, ErrSessionActive)

	// Same member in a different guild is a different session key.
	_, err = s.Start("g2", "m1")
	assert.NoError(t, err)
}

func TestStartReplacesExpiredSession(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	defer s.Close()

	old, err := s.Start("g1", "m1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	fresh, err := s.Start("g1", "m1")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)

	_, err = s.Get(old.ID, "m1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGetChecksOwnership(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	sess, err := s.Start("g1", "m1")
	require.NoError(t, err)

	_, err = s.Get(sess.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := s.Get(sess.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestAdvanceWalksPlantWizard(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	sess, err := s.Start("g1", "m1")
	require.NoError(t, err)
	assert.Equal(t, StateServiceType, sess.State)

	sess, err = s.Advance(sess.ID, "m1", func(sess *Session) error {
		sess.ServiceType = "plant"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateItem, sess.State)

	sess, err = s.Advance(sess.ID, "m1", func(sess *Session) error {
		sess.ItemType = "Milho"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateQuantity, sess.State)

	sess, err = s.Advance(sess.ID, "m1", func(sess *Session) error {
		sess.Quantity = 200
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateEvidence, sess.State)
}

func TestAdvanceSkipsQuantityForAnimals(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	sess, err := s.Start("g1", "m1")
	require.NoError(t, err)

	sess, err = s.Advance(sess.ID, "m1", func(sess *Session) error {
		sess.ServiceType = "animal"
		return nil
	})
	require.NoError(t, err)

	sess, err = s.Advance(sess.ID, "m1", func(sess *Session) error {
		sess.ItemType = "Vaca"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateEvidence, sess.State, "animal claims go straight to evidence")
}

func TestAdvanceStopsAtDone(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	sess, err := s.Start("g1", "m1")
	require.NoError(t, err)
	sess.ServiceType = "animal"
	sess.State = StateDone

	_, err = s.Advance(sess.ID, "m1", nil)
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestEndRemovesSession(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	sess, err := s.Start("g1", "m1")
	require.NoError(t, err)

	s.End(sess.ID)

	_, err = s.Get(sess.ID, "m1")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = s.Start("g1", "m1")
	assert.NoError(t, err, "ending a session frees the member slot")
}

func TestEvictStale(t *testing.T) {
	s := NewStore(time.Millisecond)
	defer s.Close()

	sess, err := s.Start("g1", "m1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	s.evictStale()

	_, err = s.Get(sess.ID, "m1")
	assert.ErrorIs(t, err, ErrNoSession)
}
