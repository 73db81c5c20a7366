package repositories

import (
	"context"
	"time"

	"memorybox/models"
	"memorybox/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

func (nr *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.ExpiresAt = notification.CreatedAt.Add(models.NotificationTTL)

	_, err := nr.collection.InsertOne(ctx, notification)
	return err
}

func (nr *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("invalid notification ID")
	}

	var notification models.Notification
	err = nr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("Notification")
		}
		return nil, err
	}

	return &notification, nil
}

func (nr *NotificationRepository) ListByUser(ctx context.Context, req models.GetNotificationsRequest) ([]models.Notification, int64, error) {
	filter := bson.M{"userId": req.UserID}
	if req.Unread {
		filter["read"] = false
	}

	total, err := nr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (req.Page - 1) * req.PageSize
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(req.PageSize))

	cursor, err := nr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	err = cursor.All(ctx, &notifications)
	return notifications, total, err
}

func (nr *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	return nr.collection.CountDocuments(ctx, bson.M{
		"userId": userID,
		"read":   false,
	})
}

// MarkRead flips the given notifications to read for a user. An empty ID list
// marks everything unread for that user. Returns how many changed.
func (nr *NotificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	filter := bson.M{
		"userId": userID,
		"read":   false,
	}

	if len(ids) > 0 {
		objectIDs := make([]primitive.ObjectID, 0, len(ids))
		for _, id := range ids {
			objectID, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return 0, utils.NewValidationError("invalid notification ID")
			}
			objectIDs = append(objectIDs, objectID)
		}
		filter["_id"] = bson.M{"$in": objectIDs}
	}

	now := time.Now()
	result, err := nr.collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{
			"read":   true,
			"readAt": now,
		},
	})
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}

// DeleteExpired is the cleanup fallback behind the TTL index, for deployments
// where the index is missing or disabled.
func (nr *NotificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := nr.collection.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
