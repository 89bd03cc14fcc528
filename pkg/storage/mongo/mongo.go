package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/grexie/secretchat/pkg/storage/interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

type mongoStorageBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ interfaces.IStorageBackend = &mongoStorageBackend{}

func NewMongoStorageBackend(ctx context.Context, mongoURL string) (interfaces.IStorageBackend, error) {
	b := &mongoStorageBackend{}

	if strings.TrimSpace(mongoURL) == "" {
		return nil, fmt.Errorf("mongo url not configured, set SECRETCHAT_MONGO_URL")
	} else if u, err := url.Parse(mongoURL); err != nil {
		return nil, err
	} else if database := strings.TrimPrefix(u.Path, "/"); database == "" {
		return nil, fmt.Errorf("mongo url must include a database name: %s", u.Redacted())
	} else if client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL)); err != nil {
		return nil, err
	} else {
		b.client = client
		b.db = client.Database(database)
	}

	if err := b.EnsureIndex(ctx, messagesCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "contract", Value: 1}, {Key: "messageId", Value: 1}},
		Options: options.Index().SetName("contract_messageId").SetUnique(true),
	}); err != nil {
		return nil, err
	}

	if err := b.EnsureIndex(ctx, messagesCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "contract", Value: 1}, {Key: "sender", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("sender"),
	}); err != nil {
		return nil, err
	}

	if err := b.EnsureIndex(ctx, messagesCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "contract", Value: 1}, {Key: "recipient", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("recipient"),
	}); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *mongoStorageBackend) EnsureIndex(ctx context.Context, collectionName string, model mongo.IndexModel) error {
	c := b.db.Collection(collectionName)

	idxs := c.Indexes()

	v := model.Options.Name
	if v == nil {
		return fmt.Errorf("must provide a name for index")
	}
	expectedName := *v

	cur, err := idxs.List(ctx)
	if err != nil {
		return fmt.Errorf("unable to list indexes: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var d bson.M

		if err := cur.Decode(&d); err != nil {
			return fmt.Errorf("unable to decode bson index document: %w", err)
		}

		if name, ok := d["name"].(string); ok && name == expectedName {
			return nil
		}
	}

	_, err = idxs.CreateOne(ctx, model)
	return err
}

func (b *mongoStorageBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}
