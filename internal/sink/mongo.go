package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tbourn/go-form-guard/internal/detect"
)

// mongoDetection is the document shape of the MongoDB detection log.
type mongoDetection struct {
	ID        string              `bson:"_id"`
	Type      string              `bson:"type"`
	IP        string              `bson:"ip"`
	Reason    string              `bson:"failed_reason"`
	Failed    []string            `bson:"failed"`
	Details   map[string][]string `bson:"details"`
	UserAgent string              `bson:"user_agent,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
}

// MongoSink appends each record to a MongoDB collection.
type MongoSink struct {
	Coll *mongo.Collection
	Log  zerolog.Logger
}

func (s MongoSink) Record(ctx context.Context, r detect.Record) {
	if s.Coll == nil {
		return
	}
	doc := mongoDetection{
		ID:        r.ID,
		Type:      string(r.Type),
		IP:        r.ClientIP,
		Reason:    string(r.Reason()),
		Details:   r.Details,
		UserAgent: r.UserAgent,
		Timestamp: r.Timestamp.UTC(),
	}
	for _, f := range r.Failed {
		doc.Failed = append(doc.Failed, string(f))
	}
	if _, err := s.Coll.InsertOne(ctx, doc); err != nil {
		s.Log.Error().Err(err).Str("record_id", r.ID).Msg("mongo: insert detection failed")
	}
}

// ConnectMongo opens a client, verifies it with a ping and ensures the
// (ip, timestamp) index on the detection collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*mongo.Client, *mongo.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ip", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to create MongoDB index: %w", err)
	}
	return client, coll, nil
}
