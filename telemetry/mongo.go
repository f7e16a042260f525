package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/linecar-sim/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoBatch = 500

// inserter is the part of *mongo.Collection the sink needs.
type inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoSink stores records in a collection, one document per tick.
// Records are buffered and inserted in batches; Rotate and Close flush.
type MongoSink struct {
	col     inserter
	client  *mongo.Client
	batch   int
	buf     []interface{}
	timeout time.Duration
}

// NewMongoSink connects to the configured collection.
func NewMongoSink(ctx context.Context, c config.Mongo) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Infof("telemetry to mongo %s.%s", c.DB, c.Col)
	s := newMongoSink(client.Database(c.DB).Collection(c.Col), c.Batch)
	s.client = client
	return s, nil
}

func newMongoSink(col inserter, batch int) *MongoSink {
	if batch <= 0 {
		batch = defaultMongoBatch
	}
	return &MongoSink{
		col:     col,
		batch:   batch,
		buf:     make([]interface{}, 0, batch),
		timeout: 10 * time.Second,
	}
}

func (s *MongoSink) Write(r Record) error {
	s.buf = append(s.buf, r)
	if len(s.buf) >= s.batch {
		return s.flush()
	}
	return nil
}

func (s *MongoSink) flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.col.InsertMany(ctx, s.buf, options.InsertMany().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("insert %d records: %w", len(s.buf), err)
	}
	s.buf = s.buf[:0]
	return nil
}

func (s *MongoSink) Rotate(int) error {
	return s.flush()
}

func (s *MongoSink) Close() error {
	err := s.flush()
	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if derr := s.client.Disconnect(ctx); err == nil {
			err = derr
		}
		s.client = nil
	}
	return err
}
