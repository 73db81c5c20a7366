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

// MessageRepository persists per-recipient delivery records. Every dispatch
// attempt writes one record before any provider is called, so the collection
// is the audit trail of the whole system.
type MessageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{
		collection: db.Collection("messages_sent"),
	}
}

func (mr *MessageRepository) Create(ctx context.Context, record *models.MessageRecord) error {
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	_, err := mr.collection.InsertOne(ctx, record)
	return err
}

func (mr *MessageRepository) GetByID(ctx context.Context, id string) (*models.MessageRecord, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("invalid message ID")
	}

	var record models.MessageRecord
	err = mr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("Message")
		}
		return nil, err
	}

	return &record, nil
}

func (mr *MessageRepository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	update["updatedAt"] = time.Now()

	result, err := mr.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
	)

	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Message")
	}

	return nil
}

// MarkSent transitions a pending record to sent and stores what the provider
// told us about the hand-off.
func (mr *MessageRepository) MarkSent(ctx context.Context, id primitive.ObjectID, providerMessageID, providerResponse string) error {
	now := time.Now()
	return mr.Update(ctx, id, bson.M{
		"status":            models.MessageStatusSent,
		"providerMessageId": providerMessageID,
		"providerResponse":  providerResponse,
		"sentAt":            now,
	})
}

func (mr *MessageRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error {
	now := time.Now()
	return mr.Update(ctx, id, bson.M{
		"status":   models.MessageStatusFailed,
		"error":    errMsg,
		"failedAt": now,
	})
}

// GetByProviderID looks a record up by the ID the provider assigned at
// hand-off time. Returns NotFound when the ID is not ours.
func (mr *MessageRepository) GetByProviderID(ctx context.Context, providerMessageID string) (*models.MessageRecord, error) {
	var record models.MessageRecord
	err := mr.collection.FindOne(ctx, bson.M{"providerMessageId": providerMessageID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("Message")
		}
		return nil, err
	}

	return &record, nil
}

// MarkOpenedByToken records the first open for the tracking token. Later hits
// on the same token keep the original openedAt.
func (mr *MessageRepository) MarkOpenedByToken(ctx context.Context, token string) (*models.MessageRecord, error) {
	now := time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record models.MessageRecord
	err := mr.collection.FindOneAndUpdate(
		ctx,
		bson.M{
			"trackingToken": token,
			"openedAt":      bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{
			"openedAt":  now,
			"updatedAt": now,
		}},
		opts,
	).Decode(&record)

	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (mr *MessageRepository) List(ctx context.Context, req models.GetMessagesRequest) ([]models.MessageRecord, int64, error) {
	filter := bson.M{}
	if req.Type != "" {
		filter["type"] = req.Type
	}
	if req.Status != "" {
		filter["status"] = req.Status
	}
	if req.UserID != "" {
		filter["userId"] = req.UserID
	}
	if req.CampaignID != "" {
		campaignID, err := primitive.ObjectIDFromHex(req.CampaignID)
		if err != nil {
			return nil, 0, utils.NewValidationError("invalid campaign ID")
		}
		filter["campaignId"] = campaignID
	}

	total, err := mr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (req.Page - 1) * req.PageSize
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(req.PageSize))

	cursor, err := mr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var records []models.MessageRecord
	err = cursor.All(ctx, &records)
	return records, total, err
}

// CountEngagement tallies record counts over an optional window and campaign
// scope. Sent means the provider hand-off happened; a click implies an open
// and an open implies a delivery, so those counts fold the later stages in.
func (mr *MessageRepository) CountEngagement(ctx context.Context, campaignID *primitive.ObjectID, since, until *time.Time) (*models.EngagementCounts, error) {
	match := bson.M{}
	if campaignID != nil {
		match["campaignId"] = *campaignID
	}
	if since != nil || until != nil {
		window := bson.M{}
		if since != nil {
			window["$gte"] = *since
		}
		if until != nil {
			window["$lt"] = *until
		}
		match["createdAt"] = window
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":       nil,
			"sent":      sumIf(fieldSet("$sentAt")),
			"delivered": sumIf(anyFieldSet("$deliveredAt", "$openedAt", "$clickedAt")),
			"opened":    sumIf(anyFieldSet("$openedAt", "$clickedAt")),
			"clicked":   sumIf(fieldSet("$clickedAt")),
			"failed":    sumIf(bson.M{"$eq": bson.A{"$status", models.MessageStatusFailed}}),
		}},
	}

	cursor, err := mr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.EngagementCounts
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &models.EngagementCounts{}, nil
	}

	return &results[0], nil
}

// CountDailyEngagement buckets engagement counts per calendar day (UTC) from
// since onward, newest excluded only by what exists. Days with no records are
// absent from the result.
func (mr *MessageRepository) CountDailyEngagement(ctx context.Context, since time.Time) (map[string]models.EngagementCounts, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"createdAt": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$createdAt",
			}},
			"sent":      sumIf(fieldSet("$sentAt")),
			"delivered": sumIf(anyFieldSet("$deliveredAt", "$openedAt", "$clickedAt")),
			"opened":    sumIf(anyFieldSet("$openedAt", "$clickedAt")),
			"clicked":   sumIf(fieldSet("$clickedAt")),
			"failed":    sumIf(bson.M{"$eq": bson.A{"$status", models.MessageStatusFailed}}),
		}},
	}

	cursor, err := mr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Date   string                  `bson:"_id"`
		Counts models.EngagementCounts `bson:",inline"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	buckets := make(map[string]models.EngagementCounts, len(results))
	for _, r := range results {
		buckets[r.Date] = r.Counts
	}

	return buckets, nil
}

// sumIf counts documents matching an aggregation condition.
func sumIf(cond bson.M) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
}

// fieldSet is true when the referenced field is present and non-null.
func fieldSet(field string) bson.M {
	return bson.M{"$ne": bson.A{bson.M{"$ifNull": bson.A{field, nil}}, nil}}
}

func anyFieldSet(fields ...string) bson.M {
	conds := make(bson.A, 0, len(fields))
	for _, f := range fields {
		conds = append(conds, fieldSet(f))
	}
	return bson.M{"$or": conds}
}

// CountByChannel returns record counts per delivery channel.
func (mr *MessageRepository) CountByChannel(ctx context.Context, since *time.Time) (map[string]int64, error) {
	match := bson.M{}
	if since != nil {
		match["createdAt"] = bson.M{"$gte": *since}
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":   "$type",
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := mr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Type  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.Type] = r.Count
	}

	return counts, nil
}

// MarkStalePendingFailed closes out records stuck in pending longer than the
// cutoff. These are dispatches that crashed between the record write and the
// provider call; the record is the only trace of the attempt, so it is marked
// failed rather than removed.
func (mr *MessageRepository) MarkStalePendingFailed(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := mr.collection.UpdateMany(ctx,
		bson.M{
			"status":    models.MessageStatusPending,
			"createdAt": bson.M{"$lt": olderThan},
		},
		bson.M{"$set": bson.M{
			"status":   models.MessageStatusFailed,
			"error":    "dispatch abandoned before provider call",
			"failedAt": time.Now(),
		}},
	)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}
