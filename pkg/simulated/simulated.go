// Package simulated is an in-process stand-in for an FHE-enabled chain running
// the SecretChat contract. The chat contract and the FHE instance share one
// ciphertext store and access-control list, so handles produced by
// EncryptUint32 can be sent in a message and later user-decrypted by the
// sender or the recipient only.
package simulated

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/fhe"
)

const ProtocolID = 10001

var (
	DefaultContractAddress   = common.HexToAddress("0x1F1B4D5D42caFc496E81DBfbbF7285075be3a8FF")
	DefaultDecryptionAddress = common.HexToAddress("0xb6E160B1ff80D67Bfe90A85eE06Ce0A2613607D1")
)

type Option func(n *Network)

func WithClock(now func() time.Time) Option {
	return func(n *Network) {
		n.now = now
	}
}

func WithAddress(address common.Address) Option {
	return func(n *Network) {
		n.address = address
	}
}

type input struct {
	contract common.Address
	user     common.Address
	value    uint32
	proof    common.Hash
}

type Network struct {
	mu sync.RWMutex

	address    common.Address
	decryption common.Address
	chainID    *big.Int
	now        func() time.Time

	block     uint64
	usernames map[common.Address]string
	owners    map[string]common.Address
	messages  []contract.Metadata
	keys      []fhe.Handle
	inbox     map[common.Address][]uint64
	outbox    map[common.Address][]uint64

	inputs  map[fhe.Handle]input
	values  map[fhe.Handle]uint32
	acl     map[fhe.Handle]map[common.Address]struct{}
	counter uint64
}

func NewNetwork(chainID *big.Int, options ...Option) *Network {
	n := Network{
		address:    DefaultContractAddress,
		decryption: DefaultDecryptionAddress,
		chainID:    new(big.Int).Set(chainID),
		now:        time.Now,
		usernames:  map[common.Address]string{},
		owners:     map[string]common.Address{},
		inbox:      map[common.Address][]uint64{},
		outbox:     map[common.Address][]uint64{},
		inputs:     map[fhe.Handle]input{},
		values:     map[fhe.Handle]uint32{},
		acl:        map[fhe.Handle]map[common.Address]struct{}{},
	}

	for _, option := range options {
		option(&n)
	}

	return &n
}

func (n *Network) ChainID() *big.Int {
	return new(big.Int).Set(n.chainID)
}

func (n *Network) Contract() contract.SecretChat {
	return &chat{n}
}

func (n *Network) Instance() fhe.Instance {
	return &instance{n}
}

// mine must be called with the write lock held.
func (n *Network) mine(from common.Address, method string) contract.Receipt {
	n.block++

	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n.block)

	return contract.Receipt{
		TxHash:      crypto.Keccak256Hash(b[:], from.Bytes(), []byte(method)),
		BlockNumber: n.block,
	}
}

// allow must be called with the write lock held.
func (n *Network) allow(handle fhe.Handle, accounts ...common.Address) {
	if n.acl[handle] == nil {
		n.acl[handle] = map[common.Address]struct{}{}
	}
	for _, a := range accounts {
		n.acl[handle][a] = struct{}{}
	}
}

func (n *Network) allowed(handle fhe.Handle, account common.Address) bool {
	_, ok := n.acl[handle][account]
	return ok
}

func revert(reason string) error {
	return fmt.Errorf("%w: %s", contract.ErrTransactionReverted, reason)
}
