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

type CampaignRepository struct {
	collection *mongo.Collection
}

func NewCampaignRepository(db *mongo.Database) *CampaignRepository {
	return &CampaignRepository{
		collection: db.Collection("campaigns"),
	}
}

func (cr *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	campaign.ID = primitive.NewObjectID()
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = time.Now()

	_, err := cr.collection.InsertOne(ctx, campaign)
	return err
}

func (cr *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("invalid campaign ID")
	}

	var campaign models.Campaign
	err = cr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&campaign)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("Campaign")
		}
		return nil, err
	}

	return &campaign, nil
}

func (cr *CampaignRepository) Update(ctx context.Context, id string, update bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("invalid campaign ID")
	}

	update["updatedAt"] = time.Now()

	result, err := cr.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": update},
	)

	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Campaign")
	}

	return nil
}

func (cr *CampaignRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("invalid campaign ID")
	}

	result, err := cr.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Campaign")
	}

	return nil
}

func (cr *CampaignRepository) List(ctx context.Context, req models.GetCampaignsRequest) ([]models.Campaign, int64, error) {
	filter := bson.M{}
	if req.Status != "" {
		filter["status"] = req.Status
	}
	if req.Type != "" {
		filter["type"] = req.Type
	}

	total, err := cr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (req.Page - 1) * req.PageSize
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(req.PageSize))

	cursor, err := cr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var campaigns []models.Campaign
	err = cursor.All(ctx, &campaigns)
	return campaigns, total, err
}

// IncrementStats bumps the embedded aggregate counters. Keys are the stat
// field names ("sent", "delivered", "opened", "clicked", "failed").
func (cr *CampaignRepository) IncrementStats(ctx context.Context, id primitive.ObjectID, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	inc := bson.M{}
	for field, delta := range deltas {
		inc["stats."+field] = delta
	}

	_, err := cr.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": inc,
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)

	return err
}

// SetStatus transitions the campaign and stamps sentAt when the transition
// lands on "sent".
func (cr *CampaignRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	update := bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}
	if status == models.CampaignStatusSent {
		now := time.Now()
		update["sentAt"] = now
	}

	result, err := cr.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
	)

	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Campaign")
	}

	return nil
}
