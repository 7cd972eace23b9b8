package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	bridge "github.com/goliatone/go-auth-bridge"
)

func TestRandomPasswordHash(t *testing.T) {
	cost := bridge.PlaceholderCost
	bridge.PlaceholderCost = bcrypt.MinCost
	t.Cleanup(func() { bridge.PlaceholderCost = cost })

	a, err := bridge.RandomPasswordHash()
	require.NoError(t, err)
	b, err := bridge.RandomPasswordHash()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	hashCost, err := bcrypt.Cost([]byte(a))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, hashCost)

	// no guessable secret matches
	for _, guess := range []string{"", "password", "placeholder"} {
		assert.Error(t, bcrypt.CompareHashAndPassword([]byte(a), []byte(guess)))
	}
}
