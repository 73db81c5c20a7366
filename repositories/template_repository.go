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

type TemplateRepository struct {
	collection *mongo.Collection
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{
		collection: db.Collection("templates"),
	}
}

func (tr *TemplateRepository) Create(ctx context.Context, template *models.Template) error {
	template.ID = primitive.NewObjectID()
	template.CreatedAt = time.Now()
	template.UpdatedAt = time.Now()

	_, err := tr.collection.InsertOne(ctx, template)
	return err
}

func (tr *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("invalid template ID")
	}

	var template models.Template
	err = tr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("Template")
		}
		return nil, err
	}

	return &template, nil
}

func (tr *TemplateRepository) Update(ctx context.Context, id string, update bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("invalid template ID")
	}

	update["updatedAt"] = time.Now()

	result, err := tr.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": update},
	)

	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Template")
	}

	return nil
}

// Delete removes the stored record outright. Historical delivery records keep
// their templateId back-reference and are not touched.
func (tr *TemplateRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("invalid template ID")
	}

	result, err := tr.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Template")
	}

	return nil
}

func (tr *TemplateRepository) List(ctx context.Context, req models.GetTemplatesRequest) ([]models.Template, int64, error) {
	filter := bson.M{}
	if req.Type != "" {
		filter["type"] = req.Type
	}
	if req.Category != "" {
		filter["category"] = req.Category
	}

	// Get total count
	total, err := tr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	// Get templates
	skip := (req.Page - 1) * req.PageSize
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(req.PageSize))

	cursor, err := tr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var templates []models.Template
	err = cursor.All(ctx, &templates)
	return templates, total, err
}

// Duplicate inserts a copy of the template under a new identity with a
// " (Copy)" name suffix. The copy starts inactive.
func (tr *TemplateRepository) Duplicate(ctx context.Context, id string) (*models.Template, error) {
	original, err := tr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	duplicate := *original
	duplicate.ID = primitive.NewObjectID()
	duplicate.Name = original.Name + " (Copy)"
	duplicate.Active = false
	duplicate.UsageCount = 0
	duplicate.CreatedAt = time.Now()
	duplicate.UpdatedAt = time.Now()

	_, err = tr.collection.InsertOne(ctx, &duplicate)
	if err != nil {
		return nil, err
	}

	return &duplicate, nil
}

func (tr *TemplateRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID) error {
	_, err := tr.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"usageCount": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)

	return err
}
