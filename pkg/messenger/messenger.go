// Package messenger composes the message codec, the FHE instance and the
// SecretChat contract into the end-to-end flows: registering a username,
// sending an encrypted message with its FHE-protected key, listing inbox and
// outbox, and recovering the key and plaintext of a message.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2/log"
	"github.com/grexie/secretchat/pkg/codec"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
	"github.com/grexie/secretchat/pkg/wallet"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

const MaxUsernameLength = 64

const (
	DefaultDecryptDurationDays = 7
	DefaultCacheSize           = 1024
	DefaultConcurrency         = 8
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

type Config struct {
	DecryptDurationDays int
	CacheSize           int
	Concurrency         int
}

type SendRequest struct {
	RecipientUsername string `json:"recipientUsername"`
	RecipientAddress  string `json:"recipientAddress"`
	Message           string `json:"message"`
}

type SendCiphertextRequest struct {
	RecipientUsername string
	RecipientAddress  string
	Ciphertext        string
	Key               uint32
}

type SendResult struct {
	contract.SendReceipt
	Key        string `json:"key"`
	Ciphertext string `json:"ciphertext"`
}

type DecryptResult struct {
	Message   contract.Metadata `json:"message"`
	Key       string            `json:"key"`
	PlainText string            `json:"plainText"`
}

type Messenger interface {
	Account() common.Address
	Contract() common.Address
	ChainID() *big.Int
	ProtocolID(ctx context.Context) (uint64, error)

	RegisterUsername(ctx context.Context, username string) (contract.Receipt, error)
	Username(ctx context.Context, account common.Address) (string, error)
	ResolveUsername(ctx context.Context, username string) (common.Address, error)

	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendCiphertext(ctx context.Context, req SendCiphertextRequest) (SendResult, error)

	Message(ctx context.Context, id uint64) (contract.Metadata, error)
	List(ctx context.Context, box interfaces.Box, account common.Address, offset int64, count int64) (interfaces.ListMessagesResult, error)
	TotalMessages(ctx context.Context) (uint64, error)

	DecryptKey(ctx context.Context, id uint64) (string, error)
	Decrypt(ctx context.Context, id uint64) (DecryptResult, error)
}

type cacheKey struct {
	Account common.Address
	ID      uint64
}

type messenger struct {
	chat     contract.SecretChat
	instance fhe.Instance
	signer   wallet.Signer
	storage  interfaces.IStorageBackend
	config   Config
	cache    *lru.Cache[cacheKey, DecryptResult]
	now      func() time.Time
}

var _ Messenger = &messenger{}

func NewMessenger(chat contract.SecretChat, instance fhe.Instance, signer wallet.Signer, storage interfaces.IStorageBackend, config Config) (Messenger, error) {
	if config.DecryptDurationDays <= 0 {
		config.DecryptDurationDays = DefaultDecryptDurationDays
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	m := messenger{
		chat:     chat,
		instance: instance,
		signer:   signer,
		storage:  storage,
		config:   config,
		now:      time.Now,
	}

	if c, err := lru.New[cacheKey, DecryptResult](config.CacheSize); err != nil {
		return nil, err
	} else {
		m.cache = c
	}

	return &m, nil
}

func (m *messenger) Account() common.Address {
	return m.signer.Address()
}

func (m *messenger) Contract() common.Address {
	return m.chat.Address()
}

func (m *messenger) ChainID() *big.Int {
	return m.signer.ChainID()
}

func (m *messenger) ProtocolID(ctx context.Context) (uint64, error) {
	return m.chat.ProtocolID(ctx)
}

func (m *messenger) RegisterUsername(ctx context.Context, username string) (contract.Receipt, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return contract.Receipt{}, invalid("Username is required")
	} else if len(username) > MaxUsernameLength {
		return contract.Receipt{}, invalid(fmt.Sprintf("Username must be at most %d characters", MaxUsernameLength))
	}

	if receipt, err := m.chat.RegisterUsername(ctx, m.signer, username); err != nil {
		return contract.Receipt{}, err
	} else {
		log.Infof("registered username %q for %s in tx %s", username, m.signer.Address().Hex(), receipt.TxHash.Hex())
		return receipt, nil
	}
}

func (m *messenger) Username(ctx context.Context, account common.Address) (string, error) {
	return m.chat.GetUsername(ctx, account)
}

func (m *messenger) ResolveUsername(ctx context.Context, username string) (common.Address, error) {
	return m.chat.ResolveUsername(ctx, strings.TrimSpace(username))
}

func recipient(username string, address string) (string, common.Address, error) {
	username = strings.TrimSpace(username)
	address = strings.TrimSpace(address)

	if username == "" && address == "" {
		return "", common.Address{}, invalid("Provide a recipient username or address")
	} else if address == "" {
		return username, common.Address{}, nil
	} else if !common.IsHexAddress(address) {
		return "", common.Address{}, invalid("Recipient address is invalid")
	} else {
		return username, common.HexToAddress(address), nil
	}
}

func (m *messenger) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	body := strings.TrimSpace(req.Message)
	if body == "" {
		return SendResult{}, invalid("Message cannot be empty")
	}

	username, address, err := recipient(req.RecipientUsername, req.RecipientAddress)
	if err != nil {
		return SendResult{}, err
	}

	key, err := codec.GenerateSecretUint32()
	if err != nil {
		return SendResult{}, err
	}

	ciphertext, err := codec.Encrypt(body, codec.SecretFromUint32(key))
	if err != nil {
		return SendResult{}, err
	}

	return m.send(ctx, username, address, ciphertext, key)
}

func (m *messenger) SendCiphertext(ctx context.Context, req SendCiphertextRequest) (SendResult, error) {
	ciphertext := strings.TrimSpace(req.Ciphertext)
	if ciphertext == "" {
		return SendResult{}, invalid("Ciphertext cannot be empty")
	}

	if username, address, err := recipient(req.RecipientUsername, req.RecipientAddress); err != nil {
		return SendResult{}, err
	} else {
		return m.send(ctx, username, address, ciphertext, req.Key)
	}
}

func (m *messenger) send(ctx context.Context, username string, address common.Address, ciphertext string, key uint32) (SendResult, error) {
	input, err := m.instance.EncryptUint32(ctx, m.chat.Address(), m.signer.Address(), key)
	if err != nil {
		return SendResult{}, fmt.Errorf("encrypting message key: %w", err)
	} else if len(input.Handles) == 0 {
		return SendResult{}, fmt.Errorf("encrypting message key: no handle returned")
	}

	receipt, err := m.chat.SendMessage(ctx, m.signer, contract.SendMessageParams{
		RecipientUsername: username,
		RecipientAddress:  address,
		Ciphertext:        ciphertext,
		EncryptedKey:      input.Handles[0],
		Proof:             input.InputProof,
	})
	if err != nil {
		return SendResult{}, err
	}

	log.Infof("sent message %d in tx %s", receipt.MessageID, receipt.TxHash.Hex())

	return SendResult{
		SendReceipt: receipt,
		Key:         codec.SecretFromUint32(key),
		Ciphertext:  ciphertext,
	}, nil
}

// Message reads through the storage backend; metadata is immutable once sent.
func (m *messenger) Message(ctx context.Context, id uint64) (contract.Metadata, error) {
	if meta, err := m.storage.GetMessage(ctx, m.chat.Address(), id); err == nil {
		return meta, nil
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		log.Warnf("storage lookup for message %d failed: %v", id, err)
	}

	meta, err := m.chat.GetMessageMetadata(ctx, id)
	if err != nil {
		return contract.Metadata{}, m.notFound(ctx, id, err)
	}

	if err := m.storage.SaveMessage(ctx, m.chat.Address(), meta); err != nil {
		log.Warnf("unable to store message %d: %v", id, err)
	}

	return meta, nil
}

// notFound reports a failed read of message id as interfaces.ErrNotFound when
// the id is past the end of the message log.
func (m *messenger) notFound(ctx context.Context, id uint64, err error) error {
	if errors.Is(err, contract.ErrMessageNotFound) {
		return fmt.Errorf("%w: message %d", interfaces.ErrNotFound, id)
	} else if total, terr := m.chat.GetTotalMessages(ctx); terr == nil && id >= total {
		return fmt.Errorf("%w: message %d", interfaces.ErrNotFound, id)
	}
	return err
}

func (m *messenger) ids(ctx context.Context, box interfaces.Box, account common.Address) ([]uint64, error) {
	switch box {
	case interfaces.Inbox:
		return m.chat.GetInboxIds(ctx, account)
	case interfaces.Outbox:
		return m.chat.GetOutboxIds(ctx, account)
	default:
		return nil, invalid(fmt.Sprintf("Invalid box: %q", box))
	}
}

// List syncs every message of the box into storage, then pages it newest first.
func (m *messenger) List(ctx context.Context, box interfaces.Box, account common.Address, offset int64, count int64) (interfaces.ListMessagesResult, error) {
	ids, err := m.ids(ctx, box, account)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Concurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := m.Message(gctx, id)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return m.storage.ListMessages(ctx, m.chat.Address(), account, box, offset, count)
}

func (m *messenger) TotalMessages(ctx context.Context) (uint64, error) {
	return m.chat.GetTotalMessages(ctx)
}

func (m *messenger) DecryptKey(ctx context.Context, id uint64) (string, error) {
	handle, err := m.chat.GetEncryptedKey(ctx, id)
	if err != nil {
		return "", m.notFound(ctx, id, err)
	}

	keypair, err := m.instance.GenerateKeypair(ctx)
	if err != nil {
		return "", fmt.Errorf("generating decryption keypair: %w", err)
	}

	start := m.now().Unix()
	contracts := []common.Address{m.chat.Address()}
	typedData := m.instance.CreateEIP712(keypair.PublicKey, contracts, start, m.config.DecryptDurationDays)

	signature, err := m.signer.SignTypedData(typedData)
	if err != nil {
		return "", fmt.Errorf("signing decryption request: %w", err)
	}

	values, err := m.instance.UserDecrypt(ctx, fhe.UserDecryptRequest{
		Pairs:             []fhe.HandleContractPair{{Handle: handle, ContractAddress: m.chat.Address()}},
		Keypair:           keypair,
		Signature:         hexutil.Encode(signature),
		ContractAddresses: contracts,
		UserAddress:       m.signer.Address(),
		StartTimestamp:    start,
		DurationDays:      m.config.DecryptDurationDays,
	})
	if err != nil {
		return "", err
	}

	value, ok := values[handle]
	if !ok {
		return "", fmt.Errorf("%w: %s", fhe.ErrMissingResult, handle)
	} else if value.Sign() < 0 || !value.IsUint64() || value.Uint64() > math.MaxUint32 {
		return "", fmt.Errorf("decrypted key for message %d is not a uint32: %s", id, value)
	}

	return codec.SecretFromUint32(uint32(value.Uint64())), nil
}

func (m *messenger) Decrypt(ctx context.Context, id uint64) (DecryptResult, error) {
	k := cacheKey{Account: m.signer.Address(), ID: id}
	if r, ok := m.cache.Get(k); ok {
		return r, nil
	}

	meta, err := m.Message(ctx, id)
	if err != nil {
		return DecryptResult{}, err
	}

	secret, err := m.DecryptKey(ctx, id)
	if err != nil {
		return DecryptResult{}, err
	}

	plainText, err := codec.Decrypt(meta.Ciphertext, secret)
	if err != nil {
		return DecryptResult{}, fmt.Errorf("message %d: %w", id, err)
	}

	r := DecryptResult{Message: meta, Key: secret, PlainText: plainText}
	m.cache.Add(k, r)
	return r, nil
}
