package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ficore.org/internal/learning"
)

// Learning materials share one collection, discriminated by a type field.
// Courses and quizzes embed their payload under "data"; progress documents
// are stored flat with a compound (type, user_id, course_id) identity.

type materialDoc[T any] struct {
	Type string `bson:"type"`
	ID   string `bson:"id"`
	Data T      `bson:"data"`
}

func (s *Store) UpsertCourse(ctx context.Context, c learning.Course) error {
	_, err := s.db.Collection(colLearningMaterials).ReplaceOne(ctx,
		bson.M{"type": learning.TypeCourse, "id": c.ID},
		materialDoc[learning.Course]{Type: learning.TypeCourse, ID: c.ID, Data: c},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) InsertCourseIfMissing(ctx context.Context, c learning.Course) error {
	n, err := s.db.Collection(colLearningMaterials).CountDocuments(ctx,
		bson.M{"type": learning.TypeCourse, "id": c.ID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.db.Collection(colLearningMaterials).InsertOne(ctx,
		materialDoc[learning.Course]{Type: learning.TypeCourse, ID: c.ID, Data: c})
	return err
}

func (s *Store) FindCourse(ctx context.Context, id string) (*learning.Course, error) {
	var doc materialDoc[learning.Course]
	err := s.db.Collection(colLearningMaterials).
		FindOne(ctx, bson.M{"type": learning.TypeCourse, "id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, learning.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc.Data, nil
}

func (s *Store) ListCourses(ctx context.Context) ([]learning.Course, error) {
	cur, err := s.db.Collection(colLearningMaterials).Find(ctx,
		bson.M{"type": learning.TypeCourse},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []materialDoc[learning.Course]
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]learning.Course, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Data)
	}
	return out, nil
}

func (s *Store) InsertQuizIfMissing(ctx context.Context, q learning.Quiz) error {
	n, err := s.db.Collection(colLearningMaterials).CountDocuments(ctx,
		bson.M{"type": learning.TypeQuiz, "id": q.ID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.db.Collection(colLearningMaterials).InsertOne(ctx,
		materialDoc[learning.Quiz]{Type: learning.TypeQuiz, ID: q.ID, Data: q})
	return err
}

func (s *Store) FindQuiz(ctx context.Context, id string) (*learning.Quiz, error) {
	var doc materialDoc[learning.Quiz]
	err := s.db.Collection(colLearningMaterials).
		FindOne(ctx, bson.M{"type": learning.TypeQuiz, "id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, learning.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc.Data, nil
}

type progressDoc struct {
	Type     string            `bson:"type"`
	UserID   string            `bson:"user_id"`
	CourseID string            `bson:"course_id"`
	Data     learning.Progress `bson:"data"`
}

func (s *Store) FindProgress(ctx context.Context, userID, courseID string) (*learning.Progress, error) {
	var doc progressDoc
	err := s.db.Collection(colLearningMaterials).FindOne(ctx, bson.M{
		"type": learning.TypeProgress, "user_id": userID, "course_id": courseID,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, learning.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc.Data, nil
}

func (s *Store) SaveProgress(ctx context.Context, p *learning.Progress) error {
	_, err := s.db.Collection(colLearningMaterials).ReplaceOne(ctx,
		bson.M{"type": learning.TypeProgress, "user_id": p.UserID, "course_id": p.CourseID},
		progressDoc{Type: learning.TypeProgress, UserID: p.UserID, CourseID: p.CourseID, Data: *p},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) DeleteProgress(ctx context.Context, userID, courseID string) error {
	res, err := s.db.Collection(colLearningMaterials).DeleteOne(ctx,
		bson.M{"type": learning.TypeProgress, "user_id": userID, "course_id": courseID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return learning.ErrNotFound
	}
	return nil
}

func (s *Store) ListProgress(ctx context.Context, userID string) ([]learning.Progress, error) {
	cur, err := s.db.Collection(colLearningMaterials).Find(ctx,
		bson.M{"type": learning.TypeProgress, "user_id": userID},
		options.Find().SetSort(bson.D{{Key: "course_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []progressDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]learning.Progress, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Data)
	}
	return out, nil
}

func (s *Store) UpsertRegistration(ctx context.Context, r learning.WebinarRegistration) error {
	_, err := s.db.Collection(colWebinars).ReplaceOne(ctx,
		bson.M{"_id": r.Email}, r, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) FindRegistration(ctx context.Context, email string) (*learning.WebinarRegistration, error) {
	var r learning.WebinarRegistration
	err := s.db.Collection(colWebinars).FindOne(ctx, bson.M{"_id": email}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, learning.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
