package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/store"
)

// purchasableFilter matches products the storefront may offer.
func purchasableFilter() bson.D {
	return bson.D{
		{Key: "available", Value: true},
		{Key: "stock", Value: bson.D{{Key: "$gt", Value: 0}}},
	}
}

// stockGuardFilter matches the product only while stock+delta stays >= 0.
func stockGuardFilter(id bson.ObjectID, delta int) bson.D {
	filter := byID(id)
	if delta < 0 {
		filter = append(filter, bson.E{Key: "stock", Value: bson.D{{Key: "$gte", Value: -delta}}})
	}
	return filter
}

func byName() *options.FindOptionsBuilder {
	return options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(nameCollation)
}

func (s *Store) ListPurchasable(ctx context.Context) ([]models.Product, error) {
	return findAll[models.Product](ctx, s.GetCollection(productsCollection), purchasableFilter(), byName())
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	return findAll[models.Product](ctx, s.GetCollection(productsCollection), bson.D{}, byName())
}

func (s *Store) GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.GetCollection(productsCollection).FindOne(ctx, byID(id)).Decode(&product)
	if err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	return findAll[models.Product](ctx, s.GetCollection(productsCollection), inIDs("_id", ids))
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = bson.NewObjectID()
	}
	product.SetTimestamps()
	_, err := s.GetCollection(productsCollection).InsertOne(ctx, product)
	return translateError(err)
}

func (s *Store) SetAvailability(ctx context.Context, id bson.ObjectID, available bool) (*models.Product, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "available", Value: available},
		{Key: "updated_at", Value: time.Now()},
	}}}

	var updated models.Product
	err := s.GetCollection(productsCollection).
		FindOneAndUpdate(ctx, byID(id), update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&updated)
	if err != nil {
		return nil, translateError(err)
	}
	return &updated, nil
}

// AdjustStock is a single conditional $inc: the guard and the write happen in
// one server-side operation, so concurrent decrements cannot oversell.
func (s *Store) AdjustStock(ctx context.Context, id bson.ObjectID, delta int) (*store.StockChange, error) {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "stock", Value: delta}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now()}}},
	}

	var updated models.Product
	err := s.GetCollection(productsCollection).
		FindOneAndUpdate(ctx, stockGuardFilter(id, delta), update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, getErr := s.GetProduct(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &store.InsufficientStockError{ProductID: id, Available: current.Stock}
	}
	if err != nil {
		return nil, err
	}

	return &store.StockChange{Product: &updated, Before: updated.Stock - delta, After: updated.Stock}, nil
}
