package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flagship-content/internal/lib/password"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, password.CompareHash(hash, "secret123"))
	assert.Error(t, password.CompareHash(hash, "wrong-password"))
}

func TestGetHash_Unique(t *testing.T) {
	first, err := password.GetHash("secret123")
	require.NoError(t, err)
	second, err := password.GetHash("secret123")
	require.NoError(t, err)
	// bcrypt использует случайную соль
	assert.NotEqual(t, first, second)
}
