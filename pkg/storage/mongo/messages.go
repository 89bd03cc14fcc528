package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Addresses are stored lower-cased so filters match regardless of checksum case.
type message struct {
	Contract          string    `bson:"contract"`
	MessageID         int64     `bson:"messageId"`
	Sender            string    `bson:"sender"`
	SenderUsername    string    `bson:"senderUsername"`
	Recipient         string    `bson:"recipient"`
	RecipientUsername string    `bson:"recipientUsername"`
	Ciphertext        string    `bson:"ciphertext"`
	Timestamp         int64     `bson:"timestamp"`
	Created           time.Time `bson:"created"`
}

func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func messageID(id uint64) (int64, error) {
	if id > math.MaxInt64 {
		return 0, fmt.Errorf("message id %d cannot be stored", id)
	}
	return int64(id), nil
}

func newMessage(contractAddress common.Address, m contract.Metadata) (message, error) {
	id, err := messageID(m.ID)
	if err != nil {
		return message{}, err
	}

	return message{
		Contract:          addressKey(contractAddress),
		MessageID:         id,
		Sender:            addressKey(m.Sender),
		SenderUsername:    m.SenderUsername,
		Recipient:         addressKey(m.Recipient),
		RecipientUsername: m.RecipientUsername,
		Ciphertext:        m.Ciphertext,
		Timestamp:         m.Timestamp,
		Created:           time.Now(),
	}, nil
}

func (m *message) Metadata() contract.Metadata {
	return contract.Metadata{
		ID:                uint64(m.MessageID),
		Sender:            common.HexToAddress(m.Sender),
		SenderUsername:    m.SenderUsername,
		Recipient:         common.HexToAddress(m.Recipient),
		RecipientUsername: m.RecipientUsername,
		Ciphertext:        m.Ciphertext,
		Timestamp:         m.Timestamp,
	}
}

type listMessagesResult struct {
	Count_ int64
	Page_  []*message
}

var _ interfaces.ListMessagesResult = &listMessagesResult{}

func (r *listMessagesResult) Count() int64 {
	return r.Count_
}

func (r *listMessagesResult) Page() []contract.Metadata {
	out := make([]contract.Metadata, len(r.Page_))
	for i, m := range r.Page_ {
		out[i] = m.Metadata()
	}
	return out
}

func (b *mongoStorageBackend) SaveMessage(ctx context.Context, contractAddress common.Address, m contract.Metadata) error {
	if doc, err := newMessage(contractAddress, m); err != nil {
		return err
	} else if _, err := b.db.Collection(messagesCollection).ReplaceOne(
		ctx,
		bson.M{"contract": doc.Contract, "messageId": doc.MessageID},
		&doc,
		options.Replace().SetUpsert(true),
	); err != nil {
		return err
	} else {
		return nil
	}
}

func (b *mongoStorageBackend) GetMessage(ctx context.Context, contractAddress common.Address, id uint64) (contract.Metadata, error) {
	var m message

	if _id, err := messageID(id); err != nil {
		return contract.Metadata{}, err
	} else if err := b.db.Collection(messagesCollection).FindOne(ctx, bson.M{"contract": addressKey(contractAddress), "messageId": _id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return contract.Metadata{}, fmt.Errorf("%w: message %d for contract %s", interfaces.ErrNotFound, id, contractAddress.Hex())
		}
		return contract.Metadata{}, err
	} else {
		return m.Metadata(), nil
	}
}

func listFilter(contractAddress common.Address, account common.Address, box interfaces.Box) (bson.M, error) {
	filter := bson.M{"contract": addressKey(contractAddress)}

	switch box {
	case interfaces.Inbox:
		filter["recipient"] = addressKey(account)
	case interfaces.Outbox:
		filter["sender"] = addressKey(account)
	default:
		return nil, fmt.Errorf("invalid box: %q", box)
	}

	return filter, nil
}

func (b *mongoStorageBackend) ListMessages(ctx context.Context, contractAddress common.Address, account common.Address, box interfaces.Box, offset int64, count int64) (interfaces.ListMessagesResult, error) {
	var r listMessagesResult

	filter, err := listFilter(contractAddress, account, box)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "messageId", Value: -1}}).
		SetSkip(max(offset, 0))
	if count > 0 {
		opts.SetLimit(count)
	}

	if total, err := b.db.Collection(messagesCollection).CountDocuments(ctx, filter); err != nil {
		return nil, err
	} else if cursor, err := b.db.Collection(messagesCollection).Find(ctx, filter, opts); err != nil {
		return nil, err
	} else if err := cursor.All(ctx, &r.Page_); err != nil {
		return nil, err
	} else {
		r.Count_ = total
		return &r, nil
	}
}
