package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ficore.org/internal/tax"
)

const taxSeededKey = "tax_data_seeded"

func (s *Store) TaxDataSeeded(ctx context.Context) (bool, error) {
	var doc struct {
		Value bool `bson:"value"`
	}
	err := s.db.Collection(colConfig).FindOne(ctx, bson.M{"_id": taxSeededKey}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doc.Value, nil
}

func (s *Store) MarkTaxDataSeeded(ctx context.Context) error {
	_, err := s.db.Collection(colConfig).ReplaceOne(ctx,
		bson.M{"_id": taxSeededKey},
		bson.M{"_id": taxSeededKey, "value": true, "updated_at": time.Now().UTC()},
		options.Replace().SetUpsert(true))
	return err
}

// ReplaceTaxData drops and rebuilds all four reference collections.
func (s *Store) ReplaceTaxData(ctx context.Context, rates []tax.Rate, rules []tax.VATRule, locations []tax.PaymentLocation, reminders []tax.Reminder) error {
	for _, col := range []string{colTaxRates, colVATRules, colTaxReminders, colPaymentLocations} {
		if _, err := s.db.Collection(col).DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
	}
	if len(rates) > 0 {
		docs := make([]any, len(rates))
		for i, r := range rates {
			docs[i] = r
		}
		if _, err := s.db.Collection(colTaxRates).InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	if len(rules) > 0 {
		docs := make([]any, len(rules))
		for i, r := range rules {
			docs[i] = r
		}
		if _, err := s.db.Collection(colVATRules).InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	if len(locations) > 0 {
		docs := make([]any, len(locations))
		for i, l := range locations {
			docs[i] = l
		}
		if _, err := s.db.Collection(colPaymentLocations).InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	if len(reminders) > 0 {
		docs := make([]any, len(reminders))
		for i, r := range reminders {
			docs[i] = r
		}
		if _, err := s.db.Collection(colTaxReminders).InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListRates(ctx context.Context, regime string, year int) ([]tax.Rate, error) {
	filter := bson.M{}
	if regime != "" {
		filter["regime"] = regime
	}
	if year != 0 {
		filter["year"] = year
	}
	cur, err := s.db.Collection(colTaxRates).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []tax.Rate
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListVATRules(ctx context.Context) ([]tax.VATRule, error) {
	cur, err := s.db.Collection(colVATRules).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "category", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []tax.VATRule
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListPaymentLocations(ctx context.Context, state string) ([]tax.PaymentLocation, error) {
	filter := bson.M{}
	if state != "" {
		// Case-insensitive exact match so "lagos" finds "Lagos".
		filter["state"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(state) + "$", Options: "i"}
	}
	cur, err := s.db.Collection(colPaymentLocations).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []tax.PaymentLocation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListReminders(ctx context.Context, after time.Time) ([]tax.Reminder, error) {
	cur, err := s.db.Collection(colTaxReminders).Find(ctx,
		bson.M{"due_date": bson.M{"$gte": after}},
		options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []tax.Reminder
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpsertRate(ctx context.Context, r tax.Rate) error {
	_, err := s.db.Collection(colTaxRates).ReplaceOne(ctx,
		bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) UpsertPaymentLocation(ctx context.Context, l tax.PaymentLocation) error {
	_, err := s.db.Collection(colPaymentLocations).ReplaceOne(ctx,
		bson.M{"_id": l.ID}, l, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) UpsertReminder(ctx context.Context, r tax.Reminder) error {
	_, err := s.db.Collection(colTaxReminders).ReplaceOne(ctx,
		bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) InsertUserReminder(ctx context.Context, r tax.UserReminder) error {
	_, err := s.db.Collection(colUserReminders).InsertOne(ctx, r)
	return err
}

func (s *Store) ListUserReminders(ctx context.Context, userID string) ([]tax.UserReminder, error) {
	cur, err := s.db.Collection(colUserReminders).Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "reminder_date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []tax.UserReminder
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteUserReminder(ctx context.Context, userID, id string) error {
	res, err := s.db.Collection(colUserReminders).DeleteOne(ctx,
		bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return tax.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	res, err := s.db.Collection(colTaxReminders).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return tax.ErrNotFound
	}
	return nil
}

func optionsFindSortLimit(field string, dir, limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: field, Value: dir}}).
		SetLimit(int64(limit))
}
