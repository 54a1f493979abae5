package mongo

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ficore.org/internal/credits"
	"ficore.org/internal/identity"
)

func (s *Store) Balance(ctx context.Context, userID string) (int64, error) {
	var doc struct {
		CoinBalance int64 `bson:"coin_balance"`
	}
	err := s.db.Collection(colUsers).
		FindOne(ctx, bson.M{"_id": strings.ToLower(userID)},
			options.FindOne().SetProjection(bson.M{"coin_balance": 1})).
		Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, credits.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return doc.CoinBalance, nil
}

// TryDecrement is the conditional spend: the filter requires the stored
// balance to still cover n, so concurrent debits cannot drive it negative.
func (s *Store) TryDecrement(ctx context.Context, userID string, n int64) (bool, error) {
	res, err := s.db.Collection(colUsers).UpdateOne(ctx,
		bson.M{"_id": strings.ToLower(userID), "coin_balance": bson.M{"$gte": n}},
		bson.M{"$inc": bson.M{"coin_balance": -n}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *Store) Increment(ctx context.Context, userID string, n int64) error {
	res, err := s.db.Collection(colUsers).UpdateOne(ctx,
		bson.M{"_id": strings.ToLower(userID)},
		bson.M{"$inc": bson.M{"coin_balance": n}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return credits.ErrNotFound
	}
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx credits.Transaction) error {
	if _, err := s.db.Collection(colCoinTransactions).InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return credits.ErrDuplicateRef
		}
		return err
	}
	return nil
}

func (s *Store) Transactions(ctx context.Context, userID string, limit int) ([]credits.Transaction, error) {
	cur, err := s.db.Collection(colCoinTransactions).Find(ctx,
		bson.M{"user_id": strings.ToLower(userID)},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	var out []credits.Transaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var doc struct {
		IsAdmin bool   `bson:"is_admin"`
		Role    string `bson:"role"`
	}
	err := s.db.Collection(colUsers).
		FindOne(ctx, bson.M{"_id": strings.ToLower(userID)},
			options.FindOne().SetProjection(bson.M{"is_admin": 1, "role": 1})).
		Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doc.IsAdmin || doc.Role == identity.RoleAdmin, nil
}
