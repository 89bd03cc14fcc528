package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gofiber/fiber/v2/log"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/wallet"
)

// Backend is satisfied by *ethclient.Client.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type MessageSent struct {
	MessageId         *big.Int
	Sender            common.Address
	Recipient         common.Address
	RecipientUsername string
}

type UserRegistered struct {
	User     common.Address
	Username string
}

type secretChat struct {
	address  common.Address
	backend  Backend
	contract *bind.BoundContract
}

var _ SecretChat = &secretChat{}

func NewSecretChat(address common.Address, backend Backend) (SecretChat, error) {
	if parsed, err := ParseABI(); err != nil {
		return nil, fmt.Errorf("contract: parsing abi: %w", err)
	} else {
		c := secretChat{
			address:  address,
			backend:  backend,
			contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		}
		return &c, nil
	}
}

func (s *secretChat) Address() common.Address {
	return s.address
}

func (s *secretChat) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("contract: %s: %w", method, err)
	}
	return out, nil
}

func (s *secretChat) transact(ctx context.Context, signer wallet.Signer, method string, params ...interface{}) (*types.Receipt, error) {
	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("contract: %s: %w", method, err)
	}

	log.Infof("waiting for %s tx: %s", method, tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("contract: waiting for %s: %w", method, err)
	} else if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s %s", ErrTransactionReverted, method, tx.Hash().Hex())
	}

	log.Infof("%s mined in block %s status=%d", method, receipt.BlockNumber, receipt.Status)

	return receipt, nil
}

func toReceipt(r *types.Receipt) Receipt {
	out := Receipt{TxHash: r.TxHash}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}

func toUint64(n *big.Int) (uint64, error) {
	if n == nil || n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%w: %v", ErrMessageIDOverflow, n)
	}
	return n.Uint64(), nil
}

func (s *secretChat) RegisterUsername(ctx context.Context, signer wallet.Signer, username string) (Receipt, error) {
	if receipt, err := s.transact(ctx, signer, "registerUsername", username); err != nil {
		return Receipt{}, err
	} else {
		return toReceipt(receipt), nil
	}
}

func (s *secretChat) SendMessage(ctx context.Context, signer wallet.Signer, params SendMessageParams) (SendReceipt, error) {
	receipt, err := s.transact(ctx, signer, "sendMessage",
		params.RecipientUsername,
		params.RecipientAddress,
		params.Ciphertext,
		[32]byte(params.EncryptedKey),
		params.Proof,
	)
	if err != nil {
		return SendReceipt{}, err
	}

	out := SendReceipt{Receipt: toReceipt(receipt)}
	if ev, err := s.parseMessageSent(receipt.Logs); err != nil {
		return out, err
	} else if out.MessageID, err = toUint64(ev.MessageId); err != nil {
		return out, err
	}

	return out, nil
}

func (s *secretChat) parseMessageSent(logs []*types.Log) (MessageSent, error) {
	for _, l := range logs {
		if l == nil || l.Address != s.address {
			continue
		}

		var ev MessageSent
		if err := s.contract.UnpackLog(&ev, "MessageSent", *l); err == nil {
			return ev, nil
		}
	}
	return MessageSent{}, ErrMessageSentMissing
}

func (s *secretChat) GetUsername(ctx context.Context, account common.Address) (string, error) {
	if out, err := s.call(ctx, "getUsername", account); err != nil {
		return "", err
	} else {
		return *abi.ConvertType(out[0], new(string)).(*string), nil
	}
}

func (s *secretChat) ResolveUsername(ctx context.Context, username string) (common.Address, error) {
	if out, err := s.call(ctx, "resolveUsername", username); err != nil {
		return common.Address{}, err
	} else {
		return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
	}
}

func (s *secretChat) ids(ctx context.Context, method string, account common.Address) ([]uint64, error) {
	out, err := s.call(ctx, method, account)
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]uint64, len(raw))
	for i, n := range raw {
		if ids[i], err = toUint64(n); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (s *secretChat) GetInboxIds(ctx context.Context, account common.Address) ([]uint64, error) {
	return s.ids(ctx, "getInboxIds", account)
}

func (s *secretChat) GetOutboxIds(ctx context.Context, account common.Address) ([]uint64, error) {
	return s.ids(ctx, "getOutboxIds", account)
}

func (s *secretChat) GetMessageMetadata(ctx context.Context, id uint64) (Metadata, error) {
	out, err := s.call(ctx, "getMessageMetadata", new(big.Int).SetUint64(id))
	if err != nil {
		return Metadata{}, err
	}

	timestamp := *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)
	if !timestamp.IsInt64() {
		return Metadata{}, fmt.Errorf("contract: message %d timestamp out of range: %s", id, timestamp)
	}

	return Metadata{
		ID:                id,
		Sender:            *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		SenderUsername:    *abi.ConvertType(out[1], new(string)).(*string),
		Recipient:         *abi.ConvertType(out[2], new(common.Address)).(*common.Address),
		RecipientUsername: *abi.ConvertType(out[3], new(string)).(*string),
		Ciphertext:        *abi.ConvertType(out[4], new(string)).(*string),
		Timestamp:         timestamp.Int64(),
	}, nil
}

func (s *secretChat) GetEncryptedKey(ctx context.Context, id uint64) (fhe.Handle, error) {
	if out, err := s.call(ctx, "getEncryptedKey", new(big.Int).SetUint64(id)); err != nil {
		return fhe.Handle{}, err
	} else {
		return fhe.Handle(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
	}
}

func (s *secretChat) uint(ctx context.Context, method string) (uint64, error) {
	if out, err := s.call(ctx, method); err != nil {
		return 0, err
	} else {
		return toUint64(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int))
	}
}

func (s *secretChat) GetTotalMessages(ctx context.Context) (uint64, error) {
	return s.uint(ctx, "getTotalMessages")
}

func (s *secretChat) ProtocolID(ctx context.Context) (uint64, error) {
	return s.uint(ctx, "protocolId")
}
