package httpserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("correct horse", cheapParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "argon2id$1$1024$1$"))
	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("battery staple", hash))

	other, err := HashPassword("correct horse", cheapParams)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ between hashes")
}

func TestVerifyPassword_Malformed(t *testing.T) {
	t.Parallel()
	for _, h := range []string{
		"",
		"bcrypt$1$2$3$4$5",
		"argon2id$x$1024$1$c2FsdA$aGFzaA",
		"argon2id$0$1024$1$c2FsdA$aGFzaA",
		"argon2id$1$1024$1$!!!$aGFzaA",
		"argon2id$1$1024$1$c2FsdA$",
	} {
		assert.False(t, VerifyPassword("pw", h), h)
	}
}
