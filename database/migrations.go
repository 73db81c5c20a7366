package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
}

// migrationRecord tracks applied migrations
type migrationRecord struct {
	Version   int       `bson:"version"`
	AppliedAt time.Time `bson:"appliedAt"`
}

// migrations contains all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create users collection with indexes",
		Up:          createUsersCollection,
	},
	{
		Version:     2,
		Description: "Create templates collection with indexes",
		Up:          createTemplatesCollection,
	},
	{
		Version:     3,
		Description: "Create campaigns collection with indexes",
		Up:          createCampaignsCollection,
	},
	{
		Version:     4,
		Description: "Create messages_sent collection with indexes",
		Up:          createMessagesSentCollection,
	},
	{
		Version:     5,
		Description: "Create notifications collection with indexes",
		Up:          createNotificationsCollection,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Ensure migrations collection exists
	migrationsCol := db.Collection("migrations")

	// Get current migration version
	currentVersion := getCurrentMigrationVersion(ctx, migrationsCol)
	logrus.Infof("📋 Current migration version: %d", currentVersion)

	// Run pending migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logrus.Infof("🔄 Running migration %d: %s", migration.Version, migration.Description)

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		// Record successful migration
		_, err := migrationsCol.InsertOne(ctx, migrationRecord{
			Version:   migration.Version,
			AppliedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		logrus.Infof("✅ Migration %d completed", migration.Version)
	}

	return nil
}

// getCurrentMigrationVersion returns the current migration version
func getCurrentMigrationVersion(ctx context.Context, col *mongo.Collection) int {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var record migrationRecord
	err := col.FindOne(ctx, bson.D{}, opts).Decode(&record)
	if err != nil {
		return 0 // No migrations applied yet
	}
	return record.Version
}

// Individual migration functions

func createUsersCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("users")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "plan", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "isActive", Value: 1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createTemplatesCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("templates")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "type", Value: 1}, {Key: "category", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "active", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "name", Value: "text"}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createCampaignsCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("campaigns")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createMessagesSentCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("messages_sent")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "campaignId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "providerMessageId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "trackingToken", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createNotificationsCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("notifications")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}
