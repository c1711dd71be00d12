package mongodb

import (
	"context"
	"time"

	"github.com/goevery/notifier/internal/notification"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const recentListLimit = 50

type storedNotification struct {
	Id        string    `bson:"_id"`
	UserId    string    `bson:"userId"`
	Title     string    `bson:"title"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"createdAt"`
	Read      bool      `bson:"read"`
}

type Store struct {
	collection *mongo.Collection
}

func NewStore(client *mongo.Client) *Store {
	database := client.Database("notifier")
	collection := database.Collection("notifications")

	return &Store{
		collection,
	}
}

func (s *Store) Setup(ctx context.Context) error {
	ttlIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(30 * 24 * 60 * 60),
	}

	userIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	unreadIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "read", Value: 1},
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		ttlIndexModel,
		userIndexModel,
		unreadIndexModel,
	})

	return err
}

func (s *Store) Save(ctx context.Context, request notification.SaveRequest) (notification.Notification, error) {
	stored := storedNotification{
		Id:        uuid.NewString(),
		UserId:    request.UserId,
		Title:     request.Title,
		Message:   request.Message,
		CreatedAt: time.Now(),
		Read:      false,
	}

	_, err := s.collection.InsertOne(ctx, stored)
	if err != nil {
		return notification.Notification{}, err
	}

	return toNotification(stored), nil
}

func (s *Store) List(ctx context.Context, userId string) ([]notification.Notification, error) {
	filter := bson.M{"userId": userId}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(recentListLimit)

	result, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var stored []storedNotification
	if err := result.All(ctx, &stored); err != nil {
		return nil, err
	}

	notifications := make([]notification.Notification, len(stored))
	for i, item := range stored {
		notifications[i] = toNotification(item)
	}

	return notifications, nil
}

func (s *Store) UnreadCount(ctx context.Context, userId string) (int, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"userId": userId,
		"read":   false,
	})

	return int(count), err
}

func (s *Store) MarkRead(ctx context.Context, userId string, notificationId string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": notificationId, "userId": userId},
		bson.M{"$set": bson.M{"read": true}})

	return err
}

func toNotification(stored storedNotification) notification.Notification {
	return notification.Notification{
		Id:        stored.Id,
		Title:     stored.Title,
		Message:   stored.Message,
		CreatedAt: stored.CreatedAt,
		Read:      stored.Read,
	}
}
