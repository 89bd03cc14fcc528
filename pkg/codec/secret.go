package codec

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

const (
	MinSecret = 10_000_000
	MaxSecret = 99_999_999
)

var secretSpan = big.NewInt(MaxSecret - MinSecret + 1)

// GenerateSecretUint32 returns a fresh 8 digit secret as the integer that is
// encrypted on-chain.
func GenerateSecretUint32() (uint32, error) {
	if n, err := rand.Int(rand.Reader, secretSpan); err != nil {
		return 0, fmt.Errorf("codec: generating secret: %w", err)
	} else {
		return uint32(n.Int64() + MinSecret), nil
	}
}

// GenerateSecret returns a fresh 8 digit secret in canonical decimal form.
func GenerateSecret() (string, error) {
	if v, err := GenerateSecretUint32(); err != nil {
		return "", err
	} else {
		return SecretFromUint32(v), nil
	}
}

func SecretFromUint32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// ParseSecret accepts only the canonical decimal form of a value that fits
// the on-chain euint32, so that ParseSecret(s) round-trips to s.
func ParseSecret(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("codec: key must be an integer between 0 and 2^32-1: %q", s)
	} else if SecretFromUint32(uint32(v)) != s {
		return 0, fmt.Errorf("codec: key is not in canonical decimal form: %q", s)
	}
	return uint32(v), nil
}
