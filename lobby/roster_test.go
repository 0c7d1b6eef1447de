package lobby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoster(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRoster()

	require.NoError(t, r.Set("l1", []string{"a", "b"}))
	tokens, err := r.RosterFor(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)

	tokens[0] = "mutated"
	again, _ := r.RosterFor(ctx, "l1")
	assert.Equal(t, "a", again[0])

	assert.ErrorIs(t, r.Set("l2", nil), ErrEmptyRoster)
	assert.Error(t, r.Set(" ", []string{"a"}))

	r.Remove("l1")
	_, err = r.RosterFor(ctx, "l1")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}
