package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const (
	HeaderKeyHash   = "X-SecretChat-Key-Hash"
	HeaderSignature = "X-SecretChat-Signature"
)

// minimum length for 256-bit entropy (32 bytes)
const minKeyLength = 32

const signatureWindow = 2 * time.Minute

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type Auth interface {
	Keys() KeyCollection

	RequireAPIKey(c *fiber.Ctx) error
	SignHeaders(body []byte) (map[string]string, error)
}

type auth struct {
	keys KeyCollection
	now  func() time.Time
}

var _ Auth = &auth{}

type Key string

func (k Key) Validate() error {
	if len(k) < minKeyLength {
		return fmt.Errorf("api key is too short, must be at least %d characters", minKeyLength)
	}

	return nil
}

func (k Key) Hash() [32]byte {
	return sha256.Sum256([]byte(k))
}

func (k Key) HashString() string {
	hash := k.Hash()
	return strings.ToLower(encoding.EncodeToString(hash[:]))
}

func (k Key) String() string {
	return string(k)
}

func (k Key) mac(data []byte, nonce []byte, timestamp time.Time) []byte {
	var tb [8]byte
	binary.BigEndian.PutUint64(tb[:], uint64(timestamp.UnixMicro()))

	h := hmac.New(sha256.New, []byte(k))
	h.Write(data)
	h.Write(nonce)
	h.Write(tb[:])
	return h.Sum(nil)
}

func (k Key) Sign(timestamp time.Time, data []byte) (Signature, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}

	var tb [8]byte
	binary.BigEndian.PutUint64(tb[:], uint64(timestamp.UnixMicro()))

	signature := strings.Join([]string{
		strings.ToLower(encoding.EncodeToString(nonce[:])),
		strings.ToLower(encoding.EncodeToString(tb[:])),
		strings.ToLower(encoding.EncodeToString(k.mac(data, nonce[:], timestamp))),
	}, ".")

	return Signature(signature), nil
}

func (k Key) Verify(now time.Time, data []byte, signature Signature) error {
	if nonce, timestamp, mac, err := signature.Parse(); err != nil {
		return err
	} else if timestamp.Before(now.Add(-signatureWindow)) {
		return fmt.Errorf("signature expired timestamp: %s current time: %s", timestamp, now)
	} else if timestamp.After(now.Add(signatureWindow)) {
		return fmt.Errorf("signature not yet valid timestamp: %s current time: %s", timestamp, now)
	} else if !hmac.Equal(k.mac(data, nonce, timestamp), mac) {
		return fmt.Errorf("invalid signature for data: %s", signature)
	} else {
		return nil
	}
}

type Signature string

func (s Signature) Parse() (nonce []byte, timestamp time.Time, mac []byte, err error) {
	components := strings.Split(string(s), ".")
	var tb []byte

	if len(components) != 3 {
		err = fmt.Errorf("invalid signature: %s", s)
	} else if nonce, err = encoding.DecodeString(strings.ToUpper(components[0])); err != nil {
		err = fmt.Errorf("invalid signature nonce: %w", err)
	} else if tb, err = encoding.DecodeString(strings.ToUpper(components[1])); err != nil {
		err = fmt.Errorf("invalid signature timestamp: %w", err)
	} else if len(tb) != 8 {
		err = fmt.Errorf("invalid timestamp in signature: %s", s)
	} else if mac, err = encoding.DecodeString(strings.ToUpper(components[2])); err != nil {
		err = fmt.Errorf("invalid signature hash: %w", err)
	} else {
		timestamp = time.UnixMicro(int64(binary.BigEndian.Uint64(tb)))
	}
	return
}

func (s Signature) String() string {
	return string(s)
}

type KeyCollection []Key

func (c KeyCollection) First() (Key, error) {
	if len(c) < 1 {
		return "", fmt.Errorf("could not find an api key, have you configured SECRETCHAT_API_KEYS?")
	}
	return c[0], nil
}

func (c KeyCollection) GetKeyMatchingHash(hash string) (Key, error) {
	if b, err := encoding.DecodeString(strings.ToUpper(hash)); err != nil {
		return "", err
	} else if len(b) != 32 {
		return "", fmt.Errorf("invalid api key hash size: %d", len(b))
	} else {
		var h [32]byte
		copy(h[:], b)
		for _, k := range c {
			if k.Hash() == h {
				return k, nil
			}
		}
		return "", fmt.Errorf("api key for hash not configured: %s", hash)
	}
}

func NewAuth(keys []string) Auth {
	a := auth{now: time.Now}

	for _, k := range keys {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		key := Key(k)
		if err := key.Validate(); err != nil {
			log.Warn(err)
		}
		a.keys = append(a.keys, key)
	}

	return &a
}

func (a *auth) Keys() KeyCollection {
	return a.keys
}

// RequireAPIKey lets every request through when no keys are configured.
func (a *auth) RequireAPIKey(c *fiber.Ctx) error {
	if len(a.keys) == 0 {
		return c.Next()
	}

	keyHash := c.Get(HeaderKeyHash)
	signature := c.Get(HeaderSignature)

	if keyHash == "" {
		log.Warnf("received request with missing header %s", HeaderKeyHash)
		return fiber.NewError(fiber.StatusUnauthorized, HeaderKeyHash+" header not provided")
	} else if signature == "" {
		log.Warnf("received request with missing header %s", HeaderSignature)
		return fiber.NewError(fiber.StatusUnauthorized, HeaderSignature+" header not provided")
	} else if k, err := a.keys.GetKeyMatchingHash(keyHash); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	} else if err := k.Verify(a.now(), c.BodyRaw(), Signature(signature)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, fmt.Sprintf("invalid signature for key hash %s: %v", keyHash, err))
	} else {
		return c.Next()
	}
}

// SignHeaders returns nil headers when no keys are configured.
func (a *auth) SignHeaders(body []byte) (map[string]string, error) {
	if len(a.keys) == 0 {
		return nil, nil
	}

	if k, err := a.keys.First(); err != nil {
		return nil, err
	} else if signature, err := k.Sign(a.now(), body); err != nil {
		return nil, err
	} else {
		return map[string]string{
			HeaderKeyHash:   k.HashString(),
			HeaderSignature: signature.String(),
		}, nil
	}
}
