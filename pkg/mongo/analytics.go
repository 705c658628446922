package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ejc.kiosk/go-api/pkg/models"
)

// BestSellers sums ordered quantities per product. The $unwind after the
// $lookup drops lines whose product has been removed.
func (s *Store) BestSellers(ctx context.Context, limit int) ([]models.BestSeller, error) {
	collection := s.GetCollection(orderLinesCollection)

	pipeline := bson.A{
		bson.D{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$product_id"},
				{Key: "total_sold", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
			}},
		},
		bson.D{
			{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: productsCollection},
				{Key: "localField", Value: "_id"},
				{Key: "foreignField", Value: "_id"},
				{Key: "as", Value: "product"},
			}},
		},
		bson.D{{Key: "$unwind", Value: "$product"}},
		bson.D{
			{Key: "$project", Value: bson.D{
				{Key: "_id", Value: 1},
				{Key: "total_sold", Value: 1},
				{Key: "product_name", Value: "$product.name"},
			}},
		},
		bson.D{
			{Key: "$sort", Value: bson.D{
				{Key: "total_sold", Value: -1},
				{Key: "product_name", Value: 1},
			}},
		},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sellers := []models.BestSeller{}
	if err := cursor.All(ctx, &sellers); err != nil {
		return nil, err
	}
	return sellers, nil
}
