package mongo

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	chat  = common.HexToAddress("0x1F1B4D5D42caFc496E81DBfbbF7285075be3a8FF")
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

func TestMessage_Metadata(t *testing.T) {
	m := contract.Metadata{
		ID:                7,
		Sender:            alice,
		SenderUsername:    "alice",
		Recipient:         bob,
		RecipientUsername: "bob",
		Ciphertext:        "bm9uY2U=:Y3Q=",
		Timestamp:         1700000000,
	}

	doc, err := newMessage(chat, m)
	require.NoError(t, err)
	assert.Equal(t, "0x1f1b4d5d42cafc496e81dbfbbf7285075be3a8ff", doc.Contract)
	assert.Equal(t, "0x00000000000000000000000000000000000a11ce", doc.Sender)
	assert.Equal(t, m, doc.Metadata())

	_, err = newMessage(chat, contract.Metadata{ID: math.MaxUint64})
	assert.Error(t, err)
}

func TestListFilter(t *testing.T) {
	filter, err := listFilter(chat, bob, interfaces.Inbox)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"contract": addressKey(chat), "recipient": addressKey(bob)}, filter)

	filter, err = listFilter(chat, alice, interfaces.Outbox)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"contract": addressKey(chat), "sender": addressKey(alice)}, filter)

	_, err = listFilter(chat, alice, interfaces.Box("drafts"))
	assert.Error(t, err)
}

func TestNewMongoStorageBackend_RequiresDatabase(t *testing.T) {
	_, err := NewMongoStorageBackend(context.Background(), "")
	assert.Error(t, err)

	_, err = NewMongoStorageBackend(context.Background(), "mongodb://localhost:27017")
	assert.Error(t, err)
}

// Runs against a real server when SECRETCHAT_TEST_MONGO_URL is set.
func TestMongoStorage_Integration(t *testing.T) {
	mongoURL := os.Getenv("SECRETCHAT_TEST_MONGO_URL")
	if mongoURL == "" {
		t.Skip("SECRETCHAT_TEST_MONGO_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := NewMongoStorageBackend(ctx, mongoURL)
	require.NoError(t, err)
	defer b.Close(ctx)

	backend := b.(*mongoStorageBackend)
	require.NoError(t, backend.db.Collection(messagesCollection).Drop(ctx))

	m := contract.Metadata{ID: 1, Sender: alice, Recipient: bob, Ciphertext: "a:b", Timestamp: 10}
	require.NoError(t, b.SaveMessage(ctx, chat, m))
	require.NoError(t, b.SaveMessage(ctx, chat, m))

	got, err := b.GetMessage(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = b.GetMessage(ctx, chat, 2)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	r, err := b.ListMessages(ctx, chat, bob, interfaces.Inbox, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Count())
	assert.Equal(t, []contract.Metadata{m}, r.Page())
}
