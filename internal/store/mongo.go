package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// partitionField holds the partition key next to the document body.
const partitionField = "_pk"

// Mongo stores documents in MongoDB or in Cosmos DB through its Mongo API.
// Each container is a collection keyed by _id.
type Mongo struct {
	client *mongo.Client
}

// ConnectMongo connects to uri and verifies the primary is reachable.
func ConnectMongo(ctx context.Context, uri string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{client: client}, nil
}

// Client returns the underlying driver client. The GridFS blob store shares it.
func (m *Mongo) Client() *mongo.Client {
	return m.client
}

// Database returns the database called name.
func (m *Mongo) Database(name string) Database {
	return &mongoDatabase{db: m.client.Database(name)}
}

// Close disconnects, waiting at most ten seconds for in-flight operations.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

type mongoDatabase struct {
	db *mongo.Database
}

func (d *mongoDatabase) Container(name string) Container {
	return &mongoContainer{coll: d.db.Collection(name)}
}

type mongoContainer struct {
	coll *mongo.Collection
}

func (c *mongoContainer) Name() string {
	return c.coll.Name()
}

func (c *mongoContainer) Create(ctx context.Context, id, partitionKey string, doc any) (WriteResult, error) {
	if err := checkID("create", c.Name(), id); err != nil {
		return WriteResult{}, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return WriteResult{}, &Error{Kind: KindInvalid, Op: "create", Container: c.Name(), ID: id, Err: err}
	}

	var body bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &body); err != nil {
		return WriteResult{}, &Error{Kind: KindInvalid, Op: "create", Container: c.Name(), ID: id, Err: err}
	}
	record := append(bson.D{{Key: "_id", Value: id}, {Key: partitionField, Value: partitionKey}}, body...)

	if _, err := c.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return WriteResult{}, &Error{Kind: KindConflict, Op: "create", Container: c.Name(), ID: id}
		}
		return WriteResult{}, &Error{Kind: KindBackend, Op: "create", Container: c.Name(), ID: id, Err: err}
	}

	return created(id), nil
}

func (c *mongoContainer) Read(ctx context.Context, id, partitionKey string, out any) error {
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, partitionField: 0})
	raw, err := c.coll.FindOne(ctx, keyFilter(id, partitionKey), opts).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &Error{Kind: KindNotFound, Op: "read", Container: c.Name(), ID: id}
	}
	if err != nil {
		return &Error{Kind: KindBackend, Op: "read", Container: c.Name(), ID: id, Err: err}
	}

	// Relaxed extended JSON renders numbers and strings as plain JSON.
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return &Error{Kind: KindBackend, Op: "read", Container: c.Name(), ID: id, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindInvalid, Op: "read", Container: c.Name(), ID: id, Err: err}
	}
	return nil
}

func (c *mongoContainer) Delete(ctx context.Context, id, partitionKey string) error {
	res, err := c.coll.DeleteOne(ctx, keyFilter(id, partitionKey))
	if err != nil {
		return &Error{Kind: KindBackend, Op: "delete", Container: c.Name(), ID: id, Err: err}
	}
	if res.DeletedCount == 0 {
		return &Error{Kind: KindNotFound, Op: "delete", Container: c.Name(), ID: id}
	}
	return nil
}

func (c *mongoContainer) QueryIDs(ctx context.Context, field, value string) ([]Key, error) {
	if err := checkField("query", c.Name(), field); err != nil {
		return nil, err
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1, partitionField: 1})
	cursor, err := c.coll.Find(ctx, bson.M{field: value}, opts)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: "query", Container: c.Name(), Err: err}
	}
	defer cursor.Close(ctx)

	var keys []Key
	for cursor.Next(ctx) {
		var row struct {
			ID           string `bson:"_id"`
			PartitionKey string `bson:"_pk"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, &Error{Kind: KindBackend, Op: "query", Container: c.Name(), Err: err}
		}
		keys = append(keys, Key{ID: row.ID, PartitionKey: row.PartitionKey})
	}
	if err := cursor.Err(); err != nil {
		return nil, &Error{Kind: KindBackend, Op: "query", Container: c.Name(), Err: err}
	}
	return keys, nil
}

func keyFilter(id, partitionKey string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: partitionField, Value: partitionKey}}
}
