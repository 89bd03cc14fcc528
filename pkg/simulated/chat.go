package simulated

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2/log"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/wallet"
)

type chat struct {
	*Network
}

var _ contract.SecretChat = &chat{}

func (c *chat) Address() common.Address {
	return c.address
}

func (c *chat) RegisterUsername(ctx context.Context, signer wallet.Signer, username string) (contract.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := signer.Address()

	if username == "" {
		return contract.Receipt{}, revert("Username required")
	} else if owner, ok := c.owners[username]; ok && owner != from {
		return contract.Receipt{}, revert("Username unavailable")
	}

	if previous, ok := c.usernames[from]; ok {
		delete(c.owners, previous)
	}
	c.usernames[from] = username
	c.owners[username] = from

	log.Infof("simulated: %s registered username %q", from.Hex(), username)

	return c.mine(from, "registerUsername"), nil
}

func (c *chat) SendMessage(ctx context.Context, signer wallet.Signer, params contract.SendMessageParams) (contract.SendReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := signer.Address()

	recipient := params.RecipientAddress
	if params.RecipientUsername != "" {
		if owner, ok := c.owners[params.RecipientUsername]; !ok {
			return contract.SendReceipt{}, revert("Unknown username")
		} else {
			recipient = owner
		}
	}
	if recipient == (common.Address{}) {
		return contract.SendReceipt{}, revert("Recipient required")
	}

	in, ok := c.inputs[params.EncryptedKey]
	if !ok || in.contract != c.address || in.user != from || in.proof != common.BytesToHash(params.Proof) {
		return contract.SendReceipt{}, revert(fhe.ErrInvalidProof.Error())
	}
	delete(c.inputs, params.EncryptedKey)

	c.values[params.EncryptedKey] = in.value
	c.allow(params.EncryptedKey, c.address, from, recipient)

	id := uint64(len(c.messages))
	c.messages = append(c.messages, contract.Metadata{
		ID:                id,
		Sender:            from,
		SenderUsername:    c.usernames[from],
		Recipient:         recipient,
		RecipientUsername: c.usernames[recipient],
		Ciphertext:        params.Ciphertext,
		Timestamp:         c.now().Unix(),
	})
	c.keys = append(c.keys, params.EncryptedKey)
	c.inbox[recipient] = append(c.inbox[recipient], id)
	c.outbox[from] = append(c.outbox[from], id)

	return contract.SendReceipt{Receipt: c.mine(from, "sendMessage"), MessageID: id}, nil
}

func (c *chat) GetUsername(ctx context.Context, account common.Address) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.usernames[account], nil
}

func (c *chat) ResolveUsername(ctx context.Context, username string) (common.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.owners[username], nil
}

func (c *chat) GetInboxIds(ctx context.Context, account common.Address) ([]uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]uint64{}, c.inbox[account]...), nil
}

func (c *chat) GetOutboxIds(ctx context.Context, account common.Address) ([]uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]uint64{}, c.outbox[account]...), nil
}

func (c *chat) GetMessageMetadata(ctx context.Context, id uint64) (contract.Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id >= uint64(len(c.messages)) {
		return contract.Metadata{}, fmt.Errorf("%w: %d", contract.ErrMessageNotFound, id)
	}
	return c.messages[id], nil
}

func (c *chat) GetEncryptedKey(ctx context.Context, id uint64) (fhe.Handle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id >= uint64(len(c.keys)) {
		return fhe.Handle{}, fmt.Errorf("%w: %d", contract.ErrMessageNotFound, id)
	}
	return c.keys[id], nil
}

func (c *chat) GetTotalMessages(ctx context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return uint64(len(c.messages)), nil
}

func (c *chat) ProtocolID(ctx context.Context) (uint64, error) {
	return ProtocolID, nil
}
