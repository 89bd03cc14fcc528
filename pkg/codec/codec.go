// Package codec encrypts message bodies with a key derived from a short
// numeric secret. The envelope format is base64(nonce) ":" base64(sealed),
// where sealed is the AES-256-GCM ciphertext with its tag appended.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	Separator = ":"
	NonceSize = 12
)

// DeriveKey hashes the secret exactly as given. Callers holding an integer
// must format it with SecretFromUint32 first.
func DeriveKey(secret string) [sha256.Size]byte {
	return sha256.Sum256([]byte(secret))
}

func newGCM(secret string, nonceSize int) (cipher.AEAD, error) {
	key := DeriveKey(secret)

	if block, err := aes.NewCipher(key[:]); err != nil {
		return nil, err
	} else if nonceSize == NonceSize {
		return cipher.NewGCM(block)
	} else {
		return cipher.NewGCMWithNonceSize(block, nonceSize)
	}
}

func Encrypt(plainText string, secret string) (string, error) {
	if !utf8.ValidString(plainText) {
		return "", newFormatError("plain text is not valid utf-8", nil)
	}

	gcm, err := newGCM(secret, NonceSize)
	if err != nil {
		return "", errors.Wrap(err, "codec: creating cipher")
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "codec: generating nonce")
	}

	sealed := gcm.Seal(nil, nonce, []byte(plainText), nil)

	return base64.StdEncoding.EncodeToString(nonce) + Separator + base64.StdEncoding.EncodeToString(sealed), nil
}

func Decrypt(envelope string, secret string) (string, error) {
	noncePart, sealedPart, found := strings.Cut(envelope, Separator)
	if !found || noncePart == "" || sealedPart == "" {
		return "", newFormatError("invalid ciphertext format", nil)
	}

	nonce, err := base64.StdEncoding.DecodeString(noncePart)
	if err != nil {
		return "", newFormatError("invalid nonce encoding", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(sealedPart)
	if err != nil {
		return "", newFormatError("invalid ciphertext encoding", err)
	}

	if len(nonce) == 0 {
		return "", newFormatError("empty nonce", nil)
	}

	gcm, err := newGCM(secret, len(nonce))
	if err != nil {
		return "", errors.Wrap(err, "codec: creating cipher")
	}

	plainText, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", newAuthenticationError(err)
	}

	if !utf8.Valid(plainText) {
		return "", newFormatError("decrypted bytes are not valid utf-8", nil)
	}

	return string(plainText), nil
}
