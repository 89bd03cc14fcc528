package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is the wallet capability handed to everything that writes to the
// chain or authorizes a user decryption.
type Signer interface {
	Address() common.Address
	ChainID() *big.Int
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}

type signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

var _ Signer = &signer{}

func NewSigner(privateKey *ecdsa.PrivateKey, chainID *big.Int) Signer {
	s := signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    new(big.Int).Set(chainID),
	}

	return &s
}

func NewSignerFromHex(hexKey string, chainID *big.Int) (Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("wallet: no private key configured, set SECRETCHAT_PRIVATE_KEY")
	} else if privateKey, err := crypto.HexToECDSA(hexKey); err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	} else {
		return NewSigner(privateKey, chainID), nil
	}
}

func GenerateSigner(chainID *big.Int) (Signer, error) {
	if privateKey, err := crypto.GenerateKey(); err != nil {
		return nil, err
	} else {
		return NewSigner(privateKey, chainID), nil
	}
}

func (s *signer) Address() common.Address {
	return s.address
}

func (s *signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

func (s *signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID); err != nil {
		return nil, err
	} else {
		opts.Context = ctx
		return opts, nil
	}
}

// SignTypedData returns an EIP-712 signature as R || S || V with V in {27, 28}.
func (s *signer) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("wallet: hashing typed data: %w", err)
	}

	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, err
	}

	signature[64] += 27

	return signature, nil
}

func RecoverTypedData(typedData apitypes.TypedData, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("wallet: invalid signature length: %d", len(signature))
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Address{}, fmt.Errorf("wallet: hashing typed data: %w", err)
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	if pub, err := crypto.SigToPub(hash, sig); err != nil {
		return common.Address{}, err
	} else {
		return crypto.PubkeyToAddress(*pub), nil
	}
}
