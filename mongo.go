package forest

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ClassificationDTO is one stored training sample.
type ClassificationDTO struct {
	Input []float64 `bson:"input"`
	Label int       `bson:"label"`
}

type forestDocument struct {
	Name   string  `bson:"name"`
	Forest *Forest `bson:"forest"`
}

// MongoStore keeps trained forests in a collection keyed by name and reads
// training samples from sample collections.
type MongoStore struct {
	database *mongo.Database
	forests  string
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{database: database, forests: "class_forests"}
}

// SaveForest inserts or replaces the forest stored under name.
func (s *MongoStore) SaveForest(ctx context.Context, name string, f *Forest) error {
	upsert := true
	_, err := s.database.Collection(s.forests).ReplaceOne(ctx,
		bson.D{{Key: "name", Value: name}},
		forestDocument{Name: name, Forest: f},
		&options.ReplaceOptions{Upsert: &upsert})
	return errors.Wrapf(err, "forest: save %q", name)
}

// LoadForest fetches the forest stored under name; opts supply the runtime
// settings.
func (s *MongoStore) LoadForest(ctx context.Context, name string, opts ...Option) (*Forest, error) {
	result := s.database.Collection(s.forests).FindOne(ctx, bson.D{{Key: "name", Value: name}})
	if result.Err() != nil {
		return nil, errors.Wrapf(result.Err(), "forest: load %q", name)
	}
	var doc forestDocument
	if err := result.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "forest: decode %q", name)
	}
	if doc.Forest == nil {
		return nil, errors.Wrapf(ErrNotTrained, "forest: load %q", name)
	}
	f := NewForest(opts...)
	f.adopt(doc.Forest)
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// adopt copies the trained model of m into f, keeping f's runtime settings.
func (f *Forest) adopt(m *Forest) {
	f.Trees = m.Trees
	f.NTrees = m.NTrees
	f.MaxDepth = m.MaxDepth
	f.MinSamplesSplit = m.MinSamplesSplit
	f.FeaturesPerTree = m.FeaturesPerTree
	f.NFeatures = m.NFeatures
	f.Classes = m.Classes
}

func sampleData(ctx context.Context, collection *mongo.Collection, count int) (*mongo.Cursor, error) {
	if count <= 0 {
		return collection.Find(ctx, bson.D{})
	}
	pipeline := mongo.Pipeline([]bson.D{{{Key: "$sample", Value: bson.D{{Key: "size", Value: count}}}}})
	return collection.Aggregate(ctx, pipeline)
}

// ReadDataset loads ClassificationDTO documents from collection. A positive
// limit draws that many random documents; otherwise every document is read.
func (s *MongoStore) ReadDataset(ctx context.Context, collection string, limit int) (*Dataset, error) {
	cursor, err := sampleData(ctx, s.database.Collection(collection), limit)
	if err != nil {
		return nil, errors.Wrapf(err, "forest: query %s", collection)
	}
	defer cursor.Close(ctx)

	var features [][]float64
	var labels []int
	for cursor.Next(ctx) {
		var data ClassificationDTO
		if err := cursor.Decode(&data); err != nil {
			return nil, errors.Wrapf(err, "forest: decode sample from %s", collection)
		}
		features = append(features, data.Input)
		labels = append(labels, data.Label)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrapf(err, "forest: read %s", collection)
	}
	return NewDataset(features, labels)
}
