package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"shiftlog/internal/model"
)

type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoDB{
		client: client,
		db:     client.Database(database),
	}, nil
}

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// MongoMirror keeps a copy of the whole collection in MongoDB, replaced on
// every save. It can seed the store when the data file is missing.
type MongoMirror struct {
	coll *mongo.Collection
}

// mirrorDoc stores a record with its position in the collection.
type mirrorDoc struct {
	Seq                    int `bson:"seq"`
	model.AttendanceRecord `bson:",inline"`
}

func NewMongoMirror(ctx context.Context, db *MongoDB) (*MongoMirror, error) {
	coll := db.Collection("attendance_records")

	if _, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create attendance_records indexes: %w", err)
	}

	return &MongoMirror{coll: coll}, nil
}

func (m *MongoMirror) Save(ctx context.Context, records []*model.AttendanceRecord) error {
	if _, err := m.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear attendance_records: %w", err)
	}
	docs := mirrorDocs(records)
	if len(docs) == 0 {
		return nil
	}
	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert attendance_records: %w", err)
	}
	return nil
}

func (m *MongoMirror) Load(ctx context.Context) ([]*model.AttendanceRecord, bool, error) {
	cursor, err := m.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, false, fmt.Errorf("find attendance_records: %w", err)
	}
	var docs []mirrorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, false, fmt.Errorf("decode attendance_records: %w", err)
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return fromMirrorDocs(docs), true, nil
}

func mirrorDocs(records []*model.AttendanceRecord) []any {
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = mirrorDoc{Seq: i, AttendanceRecord: *r.Clone()}
	}
	return docs
}

func fromMirrorDocs(docs []mirrorDoc) []*model.AttendanceRecord {
	recs := make([]*model.AttendanceRecord, len(docs))
	for i := range docs {
		recs[i] = docs[i].AttendanceRecord.Clone()
	}
	return recs
}
