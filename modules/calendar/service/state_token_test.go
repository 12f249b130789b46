package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTokenRoundTrip(t *testing.T) {
	codec := NewStateTokenCodec("test-secret")
	userID := uuid.New()

	state, err := codec.Encode(userID, PurposeCalendar)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	claims, err := codec.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, PurposeCalendar, claims.Purpose)
}

func TestStateTokenWrongSecret(t *testing.T) {
	userID := uuid.New()
	state, err := NewStateTokenCodec("secret-a").Encode(userID, PurposeCalendar)
	require.NoError(t, err)

	_, err = NewStateTokenCodec("secret-b").Decode(state)
	assert.Error(t, err)
}

func TestStateTokenExpired(t *testing.T) {
	codec := NewStateTokenCodec("test-secret")
	state, err := codec.Encode(uuid.New(), PurposeCalendar)
	require.NoError(t, err)

	// Move the verifier's clock past the TTL.
	codec.now = func() time.Time { return time.Now().Add(codec.ttl + time.Minute) }

	_, err = codec.Decode(state)
	assert.Error(t, err)
}

func TestStateTokenGarbage(t *testing.T) {
	codec := NewStateTokenCodec("test-secret")

	for _, state := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.Decode(state)
		assert.Error(t, err, "state %q should not decode", state)
	}
}

func TestStateTokenPurposePreserved(t *testing.T) {
	codec := NewStateTokenCodec("test-secret")

	state, err := codec.Encode(uuid.New(), "something-else")
	require.NoError(t, err)

	claims, err := codec.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, "something-else", claims.Purpose)
}
