package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
)

type key struct {
	contract common.Address
	id       uint64
}

type memoryStorageBackend struct {
	mu       sync.RWMutex
	messages map[key]contract.Metadata
}

var _ interfaces.IStorageBackend = &memoryStorageBackend{}

func NewMemoryStorageBackend() interfaces.IStorageBackend {
	return &memoryStorageBackend{messages: map[key]contract.Metadata{}}
}

type listMessagesResult struct {
	count int64
	page  []contract.Metadata
}

func (r *listMessagesResult) Count() int64 {
	return r.count
}

func (r *listMessagesResult) Page() []contract.Metadata {
	return r.page
}

func (b *memoryStorageBackend) SaveMessage(ctx context.Context, contractAddress common.Address, message contract.Metadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages[key{contractAddress, message.ID}] = message
	return nil
}

func (b *memoryStorageBackend) GetMessage(ctx context.Context, contractAddress common.Address, id uint64) (contract.Metadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if m, ok := b.messages[key{contractAddress, id}]; !ok {
		return contract.Metadata{}, fmt.Errorf("%w: message %d", interfaces.ErrNotFound, id)
	} else {
		return m, nil
	}
}

func (b *memoryStorageBackend) ListMessages(ctx context.Context, contractAddress common.Address, account common.Address, box interfaces.Box, offset int64, count int64) (interfaces.ListMessagesResult, error) {
	b.mu.RLock()
	var matches []contract.Metadata
	for k, m := range b.messages {
		if k.contract != contractAddress {
			continue
		}
		if (box == interfaces.Inbox && m.Recipient == account) || (box == interfaces.Outbox && m.Sender == account) {
			matches = append(matches, m)
		}
	}
	b.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Timestamp != matches[j].Timestamp {
			return matches[i].Timestamp > matches[j].Timestamp
		}
		return matches[i].ID > matches[j].ID
	})

	r := listMessagesResult{count: int64(len(matches))}
	if offset < 0 {
		offset = 0
	}
	if offset < r.count {
		end := r.count
		if count > 0 && offset+count < end {
			end = offset + count
		}
		r.page = matches[offset:end]
	}

	return &r, nil
}

func (b *memoryStorageBackend) Close(ctx context.Context) error {
	return nil
}
