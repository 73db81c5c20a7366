package repositories

import (
	"context"

	"memorybox/models"
	"memorybox/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

func (ur *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("invalid user ID")
	}

	var user models.User
	err = ur.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("User")
		}
		return nil, err
	}

	return &user, nil
}

func (ur *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := ur.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("User")
		}
		return nil, err
	}

	return &user, nil
}

// audienceFilter maps a segment name to its member query. "premium" matches
// only an explicit premium plan; "free" matches an explicit free plan or no
// plan at all; "all" matches every active user.
func audienceFilter(audience string) (bson.M, error) {
	filter := bson.M{"isActive": true}

	switch audience {
	case models.AudienceAll:
		// no plan filter
	case models.AudiencePremium:
		filter["plan"] = models.PlanPremium
	case models.AudienceFree:
		filter["$or"] = bson.A{
			bson.M{"plan": models.PlanFree},
			bson.M{"plan": bson.M{"$exists": false}},
			bson.M{"plan": ""},
		}
	default:
		return nil, utils.NewValidationError("unknown audience: " + audience)
	}

	return filter, nil
}

// FindByAudience resolves an audience segment to its active members at call
// time, never from a stored snapshot.
func (ur *UserRepository) FindByAudience(ctx context.Context, audience string) ([]models.User, error) {
	filter, err := audienceFilter(audience)
	if err != nil {
		return nil, err
	}

	cursor, err := ur.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	err = cursor.All(ctx, &users)
	return users, err
}

func (ur *UserRepository) CountByAudience(ctx context.Context, audience string) (int64, error) {
	filter, err := audienceFilter(audience)
	if err != nil {
		return 0, err
	}

	return ur.collection.CountDocuments(ctx, filter)
}
