package contract

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/wallet"
)

var (
	ErrTransactionReverted = errors.New("contract: transaction reverted")
	ErrMessageIDOverflow   = errors.New("contract: message id does not fit in uint64")
	ErrMessageSentMissing  = errors.New("contract: MessageSent event not found in receipt")
	ErrMessageNotFound     = errors.New("contract: message not found")
)

type Metadata struct {
	ID                uint64         `json:"id"`
	Sender            common.Address `json:"sender"`
	SenderUsername    string         `json:"senderUsername"`
	Recipient         common.Address `json:"recipient"`
	RecipientUsername string         `json:"recipientUsername"`
	Ciphertext        string         `json:"ciphertext"`
	Timestamp         int64          `json:"timestamp"`
}

func (m Metadata) Time() time.Time {
	return time.Unix(m.Timestamp, 0)
}

type SendMessageParams struct {
	RecipientUsername string
	RecipientAddress  common.Address
	Ciphertext        string
	EncryptedKey      fhe.Handle
	Proof             []byte
}

type Receipt struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
}

type SendReceipt struct {
	Receipt
	MessageID uint64 `json:"messageId"`
}

type SecretChat interface {
	Address() common.Address

	RegisterUsername(ctx context.Context, signer wallet.Signer, username string) (Receipt, error)
	SendMessage(ctx context.Context, signer wallet.Signer, params SendMessageParams) (SendReceipt, error)

	GetUsername(ctx context.Context, account common.Address) (string, error)
	ResolveUsername(ctx context.Context, username string) (common.Address, error)
	GetInboxIds(ctx context.Context, account common.Address) ([]uint64, error)
	GetOutboxIds(ctx context.Context, account common.Address) ([]uint64, error)
	GetMessageMetadata(ctx context.Context, id uint64) (Metadata, error)
	GetEncryptedKey(ctx context.Context, id uint64) (fhe.Handle, error)
	GetTotalMessages(ctx context.Context) (uint64, error)
	ProtocolID(ctx context.Context) (uint64, error)
}
