package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ficore.org/internal/audit"
	"ficore.org/internal/session"
)

func (s *Store) InsertSession(ctx context.Context, sess session.Session) error {
	_, err := s.db.Collection(colSessions).InsertOne(ctx, sess)
	return err
}

func (s *Store) FindSession(ctx context.Context, sid string) (*session.Session, error) {
	var sess session.Session
	err := s.db.Collection(colSessions).FindOne(ctx, bson.M{"_id": sid}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess session.Session) error {
	res, err := s.db.Collection(colSessions).ReplaceOne(ctx, bson.M{"_id": sess.SID}, sess)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, sid string) error {
	res, err := s.db.Collection(colSessions).DeleteOne(ctx, bson.M{"_id": sid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *Store) AppendEntry(ctx context.Context, e audit.Entry) error {
	_, err := s.db.Collection(colAuditLogs).InsertOne(ctx, e)
	return err
}

func (s *Store) ListEntries(ctx context.Context, limit int) ([]audit.Entry, error) {
	cur, err := s.db.Collection(colAuditLogs).Find(ctx, bson.M{},
		optionsFindSortLimit("timestamp", -1, limit))
	if err != nil {
		return nil, err
	}
	var out []audit.Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
