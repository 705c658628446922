package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ejc.kiosk/go-api/pkg/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	user.Email = models.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.GetCollection(usersCollection).InsertOne(ctx, user)
	return translateError(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.D{{Key: "email", Value: models.NormalizeEmail(email)}}
	if err := s.GetCollection(usersCollection).FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.GetCollection(usersCollection).FindOne(ctx, byID(id)).Decode(&user); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *Store) AppendInventoryLog(ctx context.Context, entry *models.InventoryLog) error {
	if entry.ID.IsZero() {
		entry.ID = bson.NewObjectID()
	}
	entry.SetTimestamp()
	_, err := s.GetCollection(inventoryLogsCollection).InsertOne(ctx, entry)
	return err
}
