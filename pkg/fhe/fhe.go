// Package fhe describes the confidential-computation collaborator: encrypting
// a clear euint32 into an on-chain input handle plus proof, and the
// authorized user-decrypt flow that turns a handle back into its clear value.
// The scheme itself lives in the relayer and the chain; this package only
// carries requests to it.
package fhe

//go:generate mockgen -source=fhe.go -destination=../mock/fhe_instance_mock.go -package=mock

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var (
	ErrNotAuthorized   = errors.New("fhe: user is not authorized to decrypt handle")
	ErrUnknownHandle   = errors.New("fhe: unknown handle")
	ErrInvalidProof    = errors.New("fhe: invalid input proof")
	ErrMissingResult   = errors.New("fhe: relayer returned no value for handle")
	ErrRequestExpired  = errors.New("fhe: user decrypt authorization is not valid at this time")
	ErrEmptyHandleList = errors.New("fhe: no handles to decrypt")
)

// Handle is a bytes32 ciphertext reference (euint32 / externalEuint32).
type Handle [32]byte

func (h Handle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

func HandleFromHex(s string) (Handle, error) {
	var h Handle
	if b, err := hex.DecodeString(strings.TrimPrefix(s, "0x")); err != nil {
		return h, fmt.Errorf("fhe: invalid handle %q: %w", s, err)
	} else if len(b) != len(h) {
		return h, fmt.Errorf("fhe: invalid handle length %d", len(b))
	} else {
		copy(h[:], b)
		return h, nil
	}
}

type EncryptedInput struct {
	Handles    []Handle
	InputProof []byte
}

type Keypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

type HandleContractPair struct {
	Handle          Handle
	ContractAddress common.Address
}

type UserDecryptRequest struct {
	Pairs             []HandleContractPair
	Keypair           Keypair
	Signature         string
	ContractAddresses []common.Address
	UserAddress       common.Address
	StartTimestamp    int64
	DurationDays      int
}

type Instance interface {
	EncryptUint32(ctx context.Context, contract common.Address, user common.Address, value uint32) (EncryptedInput, error)
	GenerateKeypair(ctx context.Context) (Keypair, error)
	CreateEIP712(publicKey []byte, contractAddresses []common.Address, startTimestamp int64, durationDays int) apitypes.TypedData
	UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[Handle]*big.Int, error)
}
