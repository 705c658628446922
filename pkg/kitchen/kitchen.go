// Package kitchen serves the order queue shown on the kitchen display and
// the delivered-order history.
package kitchen

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/realtime"
	"ejc.kiosk/go-api/pkg/store"
)

var ErrCustomerNameRequired = errors.New("customer name is required")

type Service struct {
	orders    store.Orders
	publisher realtime.Publisher
	logger    *zap.Logger
}

func NewService(orders store.Orders, publisher realtime.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{orders: orders, publisher: publisher, logger: global.OrNop(logger)}
}

// Pending returns the queue, oldest order first.
func (s *Service) Pending(ctx context.Context) ([]models.OrderDetail, error) {
	return s.orders.ListOrderDetails(ctx, models.OrderStatusPending, true)
}

// History returns delivered orders, newest first.
func (s *Service) History(ctx context.Context) ([]models.OrderDetail, error) {
	return s.orders.ListOrderDetails(ctx, models.OrderStatusDelivered, false)
}

func (s *Service) MarkDelivered(ctx context.Context, id bson.ObjectID) error {
	if err := s.orders.UpdateOrderStatus(ctx, id, models.OrderStatusDelivered); err != nil {
		return err
	}
	s.logger.Info("order delivered", zap.String("order_id", id.Hex()))
	s.changed(ctx, realtime.OpUpdate)
	return nil
}

func (s *Service) Rename(ctx context.Context, id bson.ObjectID, customerName string) error {
	name := strings.TrimSpace(customerName)
	if name == "" {
		return ErrCustomerNameRequired
	}
	if err := s.orders.RenameOrder(ctx, id, name); err != nil {
		return err
	}
	s.logger.Info("order renamed", zap.String("order_id", id.Hex()), zap.String("customer_name", name))
	s.changed(ctx, realtime.OpUpdate)
	return nil
}

// Delete removes the order and its lines. Stock is not restored.
func (s *Service) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := s.orders.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.String("order_id", id.Hex()))
	s.changed(ctx, realtime.OpDelete)
	return nil
}

func (s *Service) changed(ctx context.Context, op string) {
	if err := s.publisher.Publish(ctx, realtime.Change{Collection: realtime.CollectionOrders, Op: op}); err != nil {
		s.logger.Warn("failed to publish order change", zap.Error(err))
	}
}

// Snapshot is one full re-fetch of the queue.
type Snapshot struct {
	Orders      []models.OrderDetail `json:"orders"`
	NewOrderIDs []bson.ObjectID      `json:"new_order_ids"`
}

// Feed emits the pending queue once, then again after every orders change,
// until ctx is done or emit fails. Failed re-fetches are logged and skipped.
func (s *Service) Feed(ctx context.Context, sub realtime.Subscriber, emit func(Snapshot) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := NewTracker()
	var emitErr error
	push := func() {
		orders, err := s.Pending(ctx)
		if err != nil {
			s.logger.Warn("failed to refresh kitchen queue", zap.Error(err))
			return
		}
		ids := make([]bson.ObjectID, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		if err := emit(Snapshot{Orders: orders, NewOrderIDs: tracker.Observe(ids)}); err != nil {
			emitErr = err
			cancel()
		}
	}

	push()
	if emitErr != nil {
		return emitErr
	}
	err := sub.Subscribe(ctx, realtime.CollectionOrders, func(realtime.Change) { push() })
	if emitErr != nil {
		return emitErr
	}
	return err
}
