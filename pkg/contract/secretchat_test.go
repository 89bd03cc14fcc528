package contract

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddress = common.HexToAddress("0x1F1B4D5D42caFc496E81DBfbbF7285075be3a8FF")

type callHandler func(args []interface{}) []interface{}

// fakeBackend answers eth_call by dispatching on the method selector and mines
// every sent transaction immediately.
type fakeBackend struct {
	Backend

	abi      abi.ABI
	calls    map[string]callHandler
	sent     []*types.Transaction
	status   uint64
	logs     func(tx *types.Transaction) []*types.Log
	receipts map[common.Hash]*types.Receipt
}

func newFakeBackend(t *testing.T) *fakeBackend {
	parsed, err := ParseABI()
	require.NoError(t, err)

	return &fakeBackend{
		abi:      parsed,
		calls:    map[string]callHandler{},
		status:   types.ReceiptStatusSuccessful,
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (b *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, err := b.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}

	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	handler, ok := b.calls[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}

	return method.Outputs.Pack(handler(args)...)
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 500_000, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.sent = append(b.sent, tx)

	receipt := &types.Receipt{
		Status:      b.status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(len(b.sent))),
	}
	if b.logs != nil {
		receipt.Logs = b.logs(tx)
	}
	b.receipts[tx.Hash()] = receipt
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if receipt, ok := b.receipts[txHash]; ok {
		return receipt, nil
	}
	return nil, ethereum.NotFound
}

func messageSentLog(t *testing.T, parsed abi.ABI, id *big.Int, sender, recipient common.Address, username string) *types.Log {
	event := parsed.Events["MessageSent"]

	data, err := event.Inputs.NonIndexed().Pack(username)
	require.NoError(t, err)

	return &types.Log{
		Address: testAddress,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(id),
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(recipient.Bytes()),
		},
		Data: data,
	}
}

func newTestContract(t *testing.T) (*fakeBackend, SecretChat) {
	backend := newFakeBackend(t)
	c, err := NewSecretChat(testAddress, backend)
	require.NoError(t, err)
	return backend, c
}

func TestSecretChat_Reads(t *testing.T) {
	backend, c := newTestContract(t)
	ctx := context.Background()

	alice := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	key := [32]byte{0xaa, 0xbb}

	backend.calls["getUsername"] = func(args []interface{}) []interface{} {
		if args[0].(common.Address) == alice {
			return []interface{}{"alice"}
		}
		return []interface{}{""}
	}
	backend.calls["resolveUsername"] = func(args []interface{}) []interface{} {
		return []interface{}{bob}
	}
	backend.calls["getInboxIds"] = func(args []interface{}) []interface{} {
		return []interface{}{[]*big.Int{big.NewInt(1), big.NewInt(3)}}
	}
	backend.calls["getOutboxIds"] = func(args []interface{}) []interface{} {
		return []interface{}{[]*big.Int{}}
	}
	backend.calls["getMessageMetadata"] = func(args []interface{}) []interface{} {
		return []interface{}{bob, "bob", alice, "alice", "bm9uY2U=:Y3Q=", big.NewInt(1700000000)}
	}
	backend.calls["getEncryptedKey"] = func(args []interface{}) []interface{} {
		return []interface{}{key}
	}
	backend.calls["getTotalMessages"] = func(args []interface{}) []interface{} {
		return []interface{}{big.NewInt(4)}
	}
	backend.calls["protocolId"] = func(args []interface{}) []interface{} {
		return []interface{}{big.NewInt(10001)}
	}

	username, err := c.GetUsername(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	resolved, err := c.ResolveUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob, resolved)

	inbox, err := c.GetInboxIds(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, inbox)

	outbox, err := c.GetOutboxIds(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, outbox)

	meta, err := c.GetMessageMetadata(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		ID:                3,
		Sender:            bob,
		SenderUsername:    "bob",
		Recipient:         alice,
		RecipientUsername: "alice",
		Ciphertext:        "bm9uY2U=:Y3Q=",
		Timestamp:         1700000000,
	}, meta)

	handle, err := c.GetEncryptedKey(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, fhe.Handle(key), handle)

	total, err := c.GetTotalMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)

	protocol, err := c.ProtocolID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10001), protocol)
}

func TestSecretChat_IdOverflow(t *testing.T) {
	backend, c := newTestContract(t)

	backend.calls["getInboxIds"] = func(args []interface{}) []interface{} {
		return []interface{}{[]*big.Int{new(big.Int).Lsh(big.NewInt(1), 70)}}
	}

	_, err := c.GetInboxIds(context.Background(), common.Address{})
	assert.ErrorIs(t, err, ErrMessageIDOverflow)
}

func TestSecretChat_CallReverted(t *testing.T) {
	_, c := newTestContract(t)

	_, err := c.GetTotalMessages(context.Background())
	assert.Error(t, err)
}

func TestSecretChat_SendMessage(t *testing.T) {
	backend, c := newTestContract(t)

	signer, err := wallet.GenerateSigner(big.NewInt(11155111))
	require.NoError(t, err)

	recipient := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	backend.logs = func(tx *types.Transaction) []*types.Log {
		return []*types.Log{
			{Address: common.HexToAddress("0x01"), Topics: []common.Hash{{}}},
			messageSentLog(t, backend.abi, big.NewInt(42), signer.Address(), recipient, "bob"),
		}
	}

	params := SendMessageParams{
		RecipientUsername: "bob",
		Ciphertext:        "bm9uY2U=:Y3Q=",
		EncryptedKey:      fhe.Handle{0x01},
		Proof:             []byte{0xde, 0xad},
	}

	receipt, err := c.SendMessage(context.Background(), signer, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), receipt.MessageID)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, backend.sent[0].Hash(), receipt.TxHash)
	assert.Equal(t, uint64(1), receipt.BlockNumber)

	method, err := backend.abi.MethodById(backend.sent[0].Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "sendMessage", method.Name)

	args, err := method.Inputs.Unpack(backend.sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, "bob", args[0])
	assert.Equal(t, common.Address{}, args[1])
	assert.Equal(t, params.Ciphertext, args[2])
	assert.Equal(t, [32]byte(params.EncryptedKey), args[3])
	assert.Equal(t, params.Proof, args[4])
}

func TestSecretChat_SendMessageMissingEvent(t *testing.T) {
	_, c := newTestContract(t)

	signer, err := wallet.GenerateSigner(big.NewInt(11155111))
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), signer, SendMessageParams{RecipientUsername: "bob"})
	assert.ErrorIs(t, err, ErrMessageSentMissing)
}

func TestSecretChat_RegisterUsernameReverted(t *testing.T) {
	backend, c := newTestContract(t)
	backend.status = types.ReceiptStatusFailed

	signer, err := wallet.GenerateSigner(big.NewInt(11155111))
	require.NoError(t, err)

	_, err = c.RegisterUsername(context.Background(), signer, "alice")
	assert.ErrorIs(t, err, ErrTransactionReverted)
}

func TestSecretChat_RegisterUsername(t *testing.T) {
	backend, c := newTestContract(t)

	signer, err := wallet.GenerateSigner(big.NewInt(11155111))
	require.NoError(t, err)

	receipt, err := c.RegisterUsername(context.Background(), signer, "alice")
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, backend.sent[0].Hash(), receipt.TxHash)

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), backend.sent[0])
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), sender)
}
