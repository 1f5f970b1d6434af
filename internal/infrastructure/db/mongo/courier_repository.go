package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

const collectionCouriers = "livreurs"

type CourierRepository struct {
	col *mongo.Collection
}

func NewCourierRepository(db *mongo.Database) *CourierRepository {
	return &CourierRepository{col: db.Collection(collectionCouriers)}
}

// Create inserts a new courier document. The unique index on courier_id turns
// a second registration into ErrCourierExists.
func (r *CourierRepository) Create(ctx context.Context, c *domain.Courier) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrCourierExists
		}
		return domain.NewStoreError("create courier", err)
	}
	return nil
}

func (r *CourierRepository) List(ctx context.Context) ([]domain.Courier, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "courier_id", Value: 1}}))
	if err != nil {
		return nil, domain.NewStoreError("list couriers", err)
	}
	couriers := []domain.Courier{}
	if err := cur.All(ctx, &couriers); err != nil {
		return nil, domain.NewStoreError("list couriers", err)
	}
	return couriers, nil
}

func (r *CourierRepository) FindByID(ctx context.Context, id string) (*domain.Courier, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c domain.Courier
	err := r.col.FindOne(ctx, bson.M{"courier_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCourierNotFound
		}
		return nil, domain.NewStoreError("find courier", err)
	}
	return &c, nil
}

// Update $sets the non-nil fields and returns the document after the update.
func (r *CourierRepository) Update(ctx context.Context, id string, u domain.CourierUpdate) (*domain.Courier, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var c domain.Courier
	err := r.col.FindOneAndUpdate(ctx, bson.M{"courier_id": id}, bson.M{"$set": updateSet(u)}, opts).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCourierNotFound
		}
		return nil, domain.NewStoreError("update courier", err)
	}
	return &c, nil
}

// EnsureIndexes creates the unique courier_id index.
func (r *CourierRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "courier_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func updateSet(u domain.CourierUpdate) bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Active != nil {
		set["active"] = *u.Active
	}
	return set
}
