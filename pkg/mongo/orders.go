package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/store"
)

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = bson.NewObjectID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
		order.UpdatedAt = order.CreatedAt
	}
	_, err := s.GetCollection(ordersCollection).InsertOne(ctx, order)
	return translateError(err)
}

func (s *Store) CreateOrderLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		if lines[i].ID.IsZero() {
			lines[i].ID = bson.NewObjectID()
		}
	}
	_, err := s.GetCollection(orderLinesCollection).InsertMany(ctx, lines)
	return translateError(err)
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	if key == "" {
		return nil, store.ErrNotFound
	}
	var order models.Order
	err := s.GetCollection(ordersCollection).
		FindOne(ctx, bson.D{{Key: "idempotency_key", Value: key}}).
		Decode(&order)
	if err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// ListOrderDetails composes orders, their lines and the referenced products
// with three indexed queries. Lines whose product was removed keep a nil
// Product.
func (s *Store) ListOrderDetails(ctx context.Context, status models.OrderStatus, ascending bool) ([]models.OrderDetail, error) {
	direction := -1
	if ascending {
		direction = 1
	}
	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: direction},
		{Key: "_id", Value: direction},
	})

	orders, err := findAll[models.Order](ctx, s.GetCollection(ordersCollection), bson.D{{Key: "status", Value: status}}, findOpts)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []models.OrderDetail{}, nil
	}

	orderIDs := make([]bson.ObjectID, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	lines, err := findAll[models.OrderLine](ctx, s.GetCollection(orderLinesCollection), inIDs("order_id", orderIDs),
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	productIDs := make([]bson.ObjectID, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	products, err := s.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	return composeDetails(orders, lines, products), nil
}

func (s *Store) GetOrderDetail(ctx context.Context, id bson.ObjectID) (*models.OrderDetail, error) {
	var order models.Order
	if err := s.GetCollection(ordersCollection).FindOne(ctx, byID(id)).Decode(&order); err != nil {
		return nil, translateError(err)
	}
	lines, err := findAll[models.OrderLine](ctx, s.GetCollection(orderLinesCollection), bson.D{{Key: "order_id", Value: id}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	productIDs := make([]bson.ObjectID, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	products, err := s.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	return &composeDetails([]models.Order{order}, lines, products)[0], nil
}

func composeDetails(orders []models.Order, lines []models.OrderLine, products []models.Product) []models.OrderDetail {
	productByID := make(map[bson.ObjectID]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	linesByOrder := make(map[bson.ObjectID][]models.OrderLineDetail, len(orders))
	for _, l := range lines {
		line := models.OrderLineDetail{OrderLine: l}
		if p, ok := productByID[l.ProductID]; ok {
			line.Product = &p
		}
		linesByOrder[l.OrderID] = append(linesByOrder[l.OrderID], line)
	}

	details := make([]models.OrderDetail, len(orders))
	for i, o := range orders {
		details[i] = models.OrderDetail{Order: o, Lines: linesByOrder[o.ID]}
		if details[i].Lines == nil {
			details[i].Lines = []models.OrderLineDetail{}
		}
	}
	return details
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id bson.ObjectID, status models.OrderStatus) error {
	return s.updateOrder(ctx, id, bson.D{{Key: "status", Value: status}})
}

func (s *Store) RenameOrder(ctx context.Context, id bson.ObjectID, customerName string) error {
	return s.updateOrder(ctx, id, bson.D{{Key: "customer_name", Value: customerName}})
}

func (s *Store) updateOrder(ctx context.Context, id bson.ObjectID, fields bson.D) error {
	fields = append(fields, bson.E{Key: "updated_at", Value: time.Now()})
	result, err := s.GetCollection(ordersCollection).UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id bson.ObjectID) error {
	return s.WithinTransaction(ctx, func(ctx context.Context) error {
		result, err := s.GetCollection(ordersCollection).DeleteOne(ctx, byID(id))
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return store.ErrNotFound
		}
		_, err = s.GetCollection(orderLinesCollection).DeleteMany(ctx, bson.D{{Key: "order_id", Value: id}})
		return err
	})
}
