package database

import (
	"context"
	"time"

	"memorybox/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Seeder represents a database seeder
type Seeder struct {
	Name        string
	Description string
	Seed        func(*mongo.Database) error
}

// seeders contains all database seeders
var seeders = []Seeder{
	{
		Name:        "default_templates",
		Description: "Create the stock message templates",
		Seed:        seedDefaultTemplates,
	},
	{
		Name:        "demo_users",
		Description: "Create demo users for development",
		Seed:        seedDemoUsers,
	},
}

// RunSeeders executes all database seeders
func RunSeeders(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Check if seeders have already been run
	seedersCol := db.Collection("seeders")
	count, err := seedersCol.CountDocuments(ctx, bson.M{})
	if err == nil && count > 0 {
		logrus.Info("🌱 Seeders already run, skipping...")
		return nil
	}

	logrus.Info("🌱 Running database seeders...")

	for _, seeder := range seeders {
		logrus.Infof("🔄 Running seeder: %s", seeder.Name)

		if err := seeder.Seed(db); err != nil {
			logrus.Errorf("❌ Seeder %s failed: %v", seeder.Name, err)
			continue // Continue with other seeders
		}

		// Record successful seeder
		_, err := seedersCol.InsertOne(ctx, bson.M{
			"name":      seeder.Name,
			"createdAt": time.Now(),
		})
		if err != nil {
			logrus.Warnf("Failed to record seeder %s: %v", seeder.Name, err)
		}

		logrus.Infof("✅ Seeder %s completed", seeder.Name)
	}

	logrus.Info("🌱 All seeders completed")
	return nil
}

// seedDefaultTemplates creates the stock templates the admin dashboard starts
// from. Operators edit or duplicate them rather than writing from scratch.
func seedDefaultTemplates(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	templatesCol := db.Collection("templates")

	count, err := templatesCol.CountDocuments(ctx, bson.M{})
	if err == nil && count > 0 {
		return nil // Templates already exist
	}

	now := time.Now()
	stockTemplates := []interface{}{
		models.Template{
			Name:     "Welcome Email",
			Type:     models.TemplateTypeEmail,
			Category: models.TemplateCategoryWelcome,
			Subject:  "Welcome to {{appName}}, {{firstName}}!",
			Body:     "Hi {{firstName}},\n\nWelcome to {{appName}}! Your memories are safe with us.\n\nQuestions? Reach us at {{supportEmail}}.",
			HTML:     "<p>Hi {{firstName}},</p><p>Welcome to <strong>{{appName}}</strong>! Your memories are safe with us.</p><p>Questions? Reach us at {{supportEmail}}.</p>",
			Variables: []string{"firstName", "appName", "supportEmail"},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		models.Template{
			Name:      "Storage Reminder",
			Type:      models.TemplateTypeEmail,
			Category:  models.TemplateCategoryReminder,
			Subject:   "{{firstName}}, your memories miss you",
			Body:      "Hi {{firstName}}, you haven't added any memories lately. Visit {{websiteUrl}} to keep your collection growing.",
			Variables: []string{"firstName", "websiteUrl"},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		models.Template{
			Name:      "Security Code",
			Type:      models.TemplateTypeSMS,
			Category:  models.TemplateCategorySecurity,
			Body:      "Your {{appName}} verification code is {{otpCode}}. It expires in 10 minutes.",
			Variables: []string{"appName", "otpCode"},
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	_, err = templatesCol.InsertMany(ctx, stockTemplates)
	return err
}

// seedDemoUsers creates demo users for development
func seedDemoUsers(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersCol := db.Collection("users")

	// Check if demo users already exist
	count, err := usersCol.CountDocuments(ctx, bson.M{"email": bson.M{"$regex": "@demo.com$"}})
	if err == nil && count > 0 {
		return nil // Demo users already exist
	}

	now := time.Now()
	demoUsers := []interface{}{
		models.User{
			Email:     "ana@demo.com",
			Phone:     "+15550100001",
			FirstName: "Ana",
			LastName:  "Reyes",
			Plan:      models.PlanPremium,
			Role:      "admin",
			IsActive:  true,
			CreatedAt: now.AddDate(-1, 0, 0),
			UpdatedAt: now,
		},
		models.User{
			Email:     "sam@demo.com",
			Phone:     "+15550100002",
			FirstName: "Sam",
			LastName:  "Okafor",
			Plan:      models.PlanFree,
			Role:      "user",
			IsActive:  true,
			CreatedAt: now.AddDate(0, -3, 0),
			UpdatedAt: now,
		},
		models.User{
			Email:     "mia@demo.com",
			FirstName: "Mia",
			LastName:  "Chen",
			Role:      "user",
			IsActive:  true,
			CreatedAt: now.AddDate(0, 0, -14),
			UpdatedAt: now,
		},
	}

	_, err = usersCol.InsertMany(ctx, demoUsers)
	return err
}
