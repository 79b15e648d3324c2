// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/klresults/pkg/types"
)

// MongoDBOptions configures the MongoDB sink.
type MongoDBOptions struct {
	ConnectionString string
	Database         string
	Collection       string
	Timeout          time.Duration
}

// MongoDBSink upserts one document per draw, keyed by the record file name.
type MongoDBSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoDBSink connects and pings the server.
func NewMongoDBSink(ctx context.Context, opts MongoDBOptions) (*MongoDBSink, error) {
	if opts.ConnectionString == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if opts.Collection == "" {
		opts.Collection = "draws"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(opts.ConnectionString).
		SetMaxPoolSize(10).
		SetRetryWrites(true)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDBSink{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		timeout:    opts.Timeout,
	}, nil
}

func (s *MongoDBSink) Name() string { return "mongodb" }

// Store upserts rec under its file name.
func (s *MongoDBSink) Store(ctx context.Context, rec *types.DrawRecord, fileName string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": fileName},
		bson.M{"$set": RecordDocument(rec)},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", fileName, err)
	}
	return nil
}

// RecordDocument converts rec to a BSON document. Prize categories keep
// their ranking order.
func RecordDocument(rec *types.DrawRecord) bson.D {
	prizes := make(bson.D, 0, len(rec.Prizes))
	for _, e := range rec.Prizes {
		prizes = append(prizes, bson.E{Key: e.Key, Value: bson.D{
			{Key: "amount", Value: e.Category.Amount},
			{Key: "label", Value: e.Category.Label},
			{Key: "winners", Value: e.Category.Winners},
		}})
	}

	return bson.D{
		{Key: "lottery_name", Value: rec.LotteryName},
		{Key: "lottery_code", Value: rec.LotteryCode},
		{Key: "draw_number", Value: rec.DrawNumber},
		{Key: "draw_date", Value: rec.DrawDate},
		{Key: "venue", Value: rec.Venue},
		{Key: "prizes", Value: prizes},
		{Key: "downloadLink", Value: rec.DownloadLink},
		{Key: "has_results", Value: rec.HasActualResults()},
		{Key: "source_url", Value: rec.SourceURL},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
}

// Close disconnects the client.
func (s *MongoDBSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
