package mongo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ficore.org/internal/credits"
	"ficore.org/internal/identity"
	"ficore.org/internal/ids"
)

// CreateUser inserts the user document together with its signup-bonus
// transaction. The bonus insert is compensated by deleting the user when it
// fails, so the two documents appear together or not at all.
func (s *Store) CreateUser(ctx context.Context, u *identity.User) error {
	cp := *u
	cp.ID = strings.ToLower(u.ID)
	cp.Email = strings.ToLower(u.Email)
	if _, err := s.db.Collection(colUsers).InsertOne(ctx, cp); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return identity.ErrDuplicateUser
		}
		return err
	}
	if cp.CoinBalance > 0 {
		tx := credits.Transaction{
			ID:     ids.New(),
			UserID: cp.ID,
			Amount: cp.CoinBalance,
			Type:   credits.TypeSignupBonus,
			Ref:    ids.Ref("signup_bonus", cp.ID),
			Date:   time.Now().UTC(),
		}
		if _, err := s.db.Collection(colCoinTransactions).InsertOne(ctx, tx); err != nil {
			_, _ = s.db.Collection(colUsers).DeleteOne(ctx, bson.M{"_id": cp.ID})
			return err
		}
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*identity.User, error) {
	var u identity.User
	err := s.db.Collection(colUsers).FindOne(ctx, bson.M{"_id": strings.ToLower(id)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	var u identity.User
	err := s.db.Collection(colUsers).FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd identity.UserUpdate) error {
	set := bson.M{}
	if upd.Language != nil {
		set["language"] = *upd.Language
	}
	if upd.SetupComplete != nil {
		set["setup_complete"] = *upd.SetupComplete
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	if upd.BusinessDetails != nil {
		set["business_details"] = *upd.BusinessDetails
	}
	if upd.PersonalDetails != nil {
		set["personal_details"] = *upd.PersonalDetails
	}
	if upd.AgentDetails != nil {
		set["agent_details"] = *upd.AgentDetails
	}
	if len(set) == 0 {
		return nil
	}
	res, err := s.db.Collection(colUsers).UpdateOne(ctx, bson.M{"_id": strings.ToLower(id)}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.Collection(colUsers).DeleteOne(ctx, bson.M{"_id": strings.ToLower(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Store) SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	return s.setUserFields(ctx, id, bson.M{"otp": otp, "otp_expiry": expiresAt})
}

func (s *Store) ClearOTP(ctx context.Context, id string) error {
	return s.unsetUserFields(ctx, id, "otp", "otp_expiry")
}

func (s *Store) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return s.setUserFields(ctx, id, bson.M{"reset_token": token, "reset_token_expiry": expiresAt})
}

func (s *Store) ClearResetToken(ctx context.Context, id string) error {
	return s.unsetUserFields(ctx, id, "reset_token", "reset_token_expiry")
}

func (s *Store) setUserFields(ctx context.Context, id string, set bson.M) error {
	res, err := s.db.Collection(colUsers).UpdateOne(ctx, bson.M{"_id": strings.ToLower(id)}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Store) unsetUserFields(ctx context.Context, id string, fields ...string) error {
	unset := bson.M{}
	for _, f := range fields {
		unset[f] = ""
	}
	res, err := s.db.Collection(colUsers).UpdateOne(ctx, bson.M{"_id": strings.ToLower(id)}, bson.M{"$unset": unset})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return identity.ErrNotFound
	}
	return nil
}

// MirrorLanguage satisfies session.UserLanguageMirror.
func (s *Store) MirrorLanguage(ctx context.Context, userID, lang string) error {
	return s.setUserFields(ctx, userID, bson.M{"language": lang})
}

func (s *Store) CreateAgent(ctx context.Context, a *identity.Agent) error {
	if _, err := s.db.Collection(colAgents).InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return identity.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *Store) FindAgent(ctx context.Context, id string) (*identity.Agent, error) {
	var a identity.Agent
	err := s.db.Collection(colAgents).FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]identity.Agent, error) {
	cur, err := s.db.Collection(colAgents).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []identity.Agent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SetAgentStatus(ctx context.Context, id, status string) error {
	res, err := s.db.Collection(colAgents).UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Store) AgentBound(ctx context.Context, agentID string) (bool, error) {
	n, err := s.db.Collection(colUsers).CountDocuments(ctx, bson.M{"agent_details.agent_id": agentID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
