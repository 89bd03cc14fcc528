package interfaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grexie/secretchat/pkg/contract"
)

var ErrNotFound = errors.New("storage: not found")

type Box string

const (
	Inbox  Box = "inbox"
	Outbox Box = "outbox"
)

func ParseBox(s string) (Box, error) {
	switch Box(s) {
	case Inbox, Outbox:
		return Box(s), nil
	default:
		return "", fmt.Errorf("invalid box: %q, expected inbox or outbox", s)
	}
}

// IStorageBackend caches message metadata read from the chain. Metadata never
// changes once a message is sent, so entries are only ever inserted.
type IStorageBackend interface {
	SaveMessage(ctx context.Context, contract common.Address, message contract.Metadata) error
	GetMessage(ctx context.Context, contract common.Address, id uint64) (contract.Metadata, error)
	ListMessages(ctx context.Context, contract common.Address, account common.Address, box Box, offset int64, count int64) (ListMessagesResult, error)
	Close(ctx context.Context) error
}

type ListMessagesResult interface {
	Count() int64
	Page() []contract.Metadata
}
