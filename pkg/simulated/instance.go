package simulated

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/wallet"
)

const day = 24 * time.Hour

type instance struct {
	*Network
}

var _ fhe.Instance = &instance{}

func (i *instance) EncryptUint32(ctx context.Context, contractAddress common.Address, user common.Address, value uint32) (fhe.EncryptedInput, error) {
	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return fhe.EncryptedInput{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.counter++
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], i.counter)

	handle := fhe.Handle(crypto.Keccak256Hash(salt[:], counter[:], contractAddress.Bytes(), user.Bytes()))
	proof := crypto.Keccak256Hash(handle[:], contractAddress.Bytes(), user.Bytes())

	i.inputs[handle] = input{contract: contractAddress, user: user, value: value, proof: proof}

	return fhe.EncryptedInput{Handles: []fhe.Handle{handle}, InputProof: proof.Bytes()}, nil
}

func (i *instance) GenerateKeypair(ctx context.Context) (fhe.Keypair, error) {
	keypair := fhe.Keypair{PublicKey: make([]byte, 32), PrivateKey: make([]byte, 32)}
	if _, err := rand.Read(keypair.PrivateKey); err != nil {
		return fhe.Keypair{}, err
	}
	copy(keypair.PublicKey, crypto.Keccak256(keypair.PrivateKey))
	return keypair, nil
}

func (i *instance) CreateEIP712(publicKey []byte, contractAddresses []common.Address, startTimestamp int64, durationDays int) apitypes.TypedData {
	return fhe.NewUserDecryptTypedData(i.chainID, i.decryption, publicKey, contractAddresses, startTimestamp, durationDays)
}

func (i *instance) UserDecrypt(ctx context.Context, req fhe.UserDecryptRequest) (map[fhe.Handle]*big.Int, error) {
	if len(req.Pairs) == 0 {
		return nil, fhe.ErrEmptyHandleList
	}

	signature, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature: %v", fhe.ErrNotAuthorized, err)
	}

	typedData := i.CreateEIP712(req.Keypair.PublicKey, req.ContractAddresses, req.StartTimestamp, req.DurationDays)
	if signer, err := wallet.RecoverTypedData(typedData, signature); err != nil {
		return nil, fmt.Errorf("%w: %v", fhe.ErrNotAuthorized, err)
	} else if signer != req.UserAddress {
		return nil, fmt.Errorf("%w: signature is from %s not %s", fhe.ErrNotAuthorized, signer.Hex(), req.UserAddress.Hex())
	}

	start := time.Unix(req.StartTimestamp, 0)
	end := start.Add(time.Duration(req.DurationDays) * day)
	if now := i.now(); req.DurationDays <= 0 || now.Before(start) || now.After(end) {
		return nil, fhe.ErrRequestExpired
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	results := make(map[fhe.Handle]*big.Int, len(req.Pairs))
	for _, p := range req.Pairs {
		if !slices.Contains(req.ContractAddresses, p.ContractAddress) {
			return nil, fmt.Errorf("%w: contract %s not in signed request", fhe.ErrNotAuthorized, p.ContractAddress.Hex())
		} else if value, ok := i.values[p.Handle]; !ok {
			return nil, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, p.Handle)
		} else if !i.allowed(p.Handle, p.ContractAddress) || !i.allowed(p.Handle, req.UserAddress) {
			return nil, fmt.Errorf("%w: %s for %s", fhe.ErrNotAuthorized, p.Handle, req.UserAddress.Hex())
		} else {
			results[p.Handle] = new(big.Int).SetUint64(uint64(value))
		}
	}

	return results, nil
}
