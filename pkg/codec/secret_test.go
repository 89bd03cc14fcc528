package codec

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret_Range(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 256; i++ {
		s, err := GenerateSecret()
		require.NoError(t, err)
		require.Len(t, s, 8)

		v, err := strconv.Atoi(s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, MinSecret)
		assert.LessOrEqual(t, v, MaxSecret)

		seen[s] = true
	}
	assert.Greater(t, len(seen), 200)
}

func TestParseSecret(t *testing.T) {
	v, err := ParseSecret("12345678")
	require.NoError(t, err)
	assert.Equal(t, uint32(12345678), v)

	v, err = ParseSecret("4294967295")
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), v)

	for _, bad := range []string{"", "-1", "4294967296", "0012345678", "+12", "12a", " 12"} {
		_, err := ParseSecret(bad)
		assert.Error(t, err, bad)
	}
}

func TestSecretFromUint32_Canonical(t *testing.T) {
	assert.Equal(t, "12345678", SecretFromUint32(12345678))
	assert.Equal(t, "0", SecretFromUint32(0))
}

func TestGenerateSecretUint32(t *testing.T) {
	v, err := GenerateSecretUint32()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v, uint32(MinSecret))
	assert.LessOrEqual(t, v, uint32(MaxSecret))

	parsed, err := ParseSecret(SecretFromUint32(v))
	require.NoError(t, err)
	assert.Equal(t, v, parsed)
}
