// Package mongo is the production persistence layer over MongoDB. One Store
// serves every domain interface; collection names match the deployed ficodb
// schema.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	colUsers             = "users"
	colAgents            = "agents"
	colAuditLogs         = "audit_logs"
	colCoinTransactions  = "coin_transactions"
	colTaxRates          = "tax_rates"
	colVATRules          = "vat_rules"
	colTaxReminders      = "tax_reminders"
	colUserReminders     = "user_tax_reminders"
	colPaymentLocations  = "payment_locations"
	colLearningMaterials = "learning_materials"
	colWebinars          = "webinar_registrations"
	colSessions          = "sessions"
	colConfig            = "config"
)

// Store implements the application's persistence interfaces over one
// MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects, pings, and returns a Store bound to the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the connection; the readiness probe calls it.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes creates the indexes the invariants depend on: unique user
// email, unique transaction refs, the session TTL reaper, unique VAT
// categories and the (type, id) key on learning materials.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	type spec struct {
		col   string
		model mongo.IndexModel
	}
	specs := []spec{
		{colUsers, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{colCoinTransactions, mongo.IndexModel{
			Keys:    bson.D{{Key: "ref", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{colCoinTransactions, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
		}},
		{colSessions, mongo.IndexModel{
			Keys:    bson.D{{Key: "expiration", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		}},
		{colVATRules, mongo.IndexModel{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{colLearningMaterials, mongo.IndexModel{
			Keys: bson.D{{Key: "type", Value: 1}, {Key: "id", Value: 1}},
		}},
		{colUserReminders, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "reminder_date", Value: 1}},
		}},
		{colAuditLogs, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		}},
	}
	for _, sp := range specs {
		if _, err := s.db.Collection(sp.col).Indexes().CreateOne(ctx, sp.model); err != nil {
			return err
		}
	}
	return nil
}
