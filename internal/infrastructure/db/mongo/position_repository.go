package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

const collectionPositions = "positions"

// positionDoc is the stored form of a report. The ObjectID breaks ties between
// reports of one courier sharing a millisecond timestamp.
type positionDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	ReportID  string             `bson:"position_id"`
	CourierID string             `bson:"courier_id"`
	Latitude  float64            `bson:"latitude"`
	Longitude float64            `bson:"longitude"`
	Timestamp time.Time          `bson:"timestamp"`
}

func (d positionDoc) report() domain.PositionReport {
	return domain.PositionReport{
		ReportID:  d.ReportID,
		CourierID: d.CourierID,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
		Timestamp: d.Timestamp.UTC(),
	}
}

type PositionRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewPositionRepository(db *mongo.Database) *PositionRepository {
	return &PositionRepository{col: db.Collection(collectionPositions), now: time.Now}
}

// Append inserts a new report document.
func (r *PositionRepository) Append(ctx context.Context, courierID string, lat, lng float64) (*domain.PositionReport, error) {
	if err := domain.ValidatePosition(courierID, lat, lng); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := positionDoc{
		ID:        primitive.NewObjectID(),
		ReportID:  uuid.NewString(),
		CourierID: courierID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: domain.ReportTime(r.now()),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, domain.NewStoreError("append", err)
	}

	report := doc.report()
	return &report, nil
}

// LatestPerCourier returns the newest report of every courier using a single
// aggregation over the (courier_id, timestamp) index.
func (r *PositionRepository) LatestPerCourier(ctx context.Context) ([]domain.PositionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, latestPipeline())
	if err != nil {
		return nil, domain.NewStoreError("latest", err)
	}
	var docs []positionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.NewStoreError("latest", err)
	}

	out := make([]domain.PositionReport, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.report())
	}
	return out, nil
}

// History returns up to limit reports for courierID, newest first.
func (r *PositionRepository) History(ctx context.Context, courierID string, limit int) ([]domain.PositionReport, error) {
	if limit <= 0 {
		return []domain.PositionReport{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{"courier_id": courierID}, opts)
	if err != nil {
		return nil, domain.NewStoreError("history", err)
	}
	var docs []positionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.NewStoreError("history", err)
	}

	out := make([]domain.PositionReport, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.report())
	}
	return out, nil
}

// EnsureIndexes creates the indexes the position queries rely on.
func (r *PositionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "courier_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "position_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// latestPipeline sorts each courier's reports newest first, keeps the first
// document of every group and orders the result by courier id.
func latestPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{
			{Key: "courier_id", Value: 1},
			{Key: "timestamp", Value: -1},
			{Key: "_id", Value: -1},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$courier_id"},
			{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "courier_id", Value: 1}}}},
	}
}
