// Package learning implements the learning hub: the course catalog, quizzes,
// per-user progress with coin rewards and badges, and webinar registration.
package learning

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for unknown courses, lessons and quizzes.
	ErrNotFound = errors.New("learning: not found")
	// ErrInvalidInput rejects malformed submissions.
	ErrInvalidInput = errors.New("learning: invalid input")
)

// Material type discriminators within the learning_materials collection.
const (
	TypeCourse   = "course"
	TypeQuiz     = "quiz"
	TypeProgress = "progress"
)

// Lesson content types. An empty ContentType means text.
const (
	ContentText  = "text"
	ContentVideo = "video"
	ContentPDF   = "pdf"
)

// ValidContentType reports whether t is a recognised lesson content type.
func ValidContentType(t string) bool {
	return t == "" || t == ContentText || t == ContentVideo || t == ContentPDF
}

// Lesson is one unit of content inside a module. Video and PDF lessons carry
// the asset location in ContentPath.
type Lesson struct {
	ID          string `bson:"id" json:"id"`
	TitleEn     string `bson:"title_en" json:"title_en"`
	TitleHa     string `bson:"title_ha" json:"title_ha"`
	ContentEn   string `bson:"content_en" json:"content_en"`
	ContentHa   string `bson:"content_ha" json:"content_ha"`
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"`
	ContentPath string `bson:"content_path,omitempty" json:"content_path,omitempty"`
	QuizID      string `bson:"quiz_id,omitempty" json:"quiz_id,omitempty"`
}

// Module groups lessons within a course.
type Module struct {
	ID      string   `bson:"id" json:"id"`
	TitleEn string   `bson:"title_en" json:"title_en"`
	TitleHa string   `bson:"title_ha" json:"title_ha"`
	Lessons []Lesson `bson:"lessons" json:"lessons"`
}

// Course is a top-level catalog entry. RolesAllowed holds audience tags; the
// tag "all" makes a course visible to every role.
type Course struct {
	ID            string   `bson:"_id" json:"id"`
	TitleEn       string   `bson:"title_en" json:"title_en"`
	TitleHa       string   `bson:"title_ha" json:"title_ha"`
	DescriptionEn string   `bson:"description_en" json:"description_en"`
	DescriptionHa string   `bson:"description_ha" json:"description_ha"`
	Theme         string   `bson:"theme,omitempty" json:"theme,omitempty"`
	RolesAllowed  []string `bson:"roles_allowed" json:"roles_allowed"`
	Premium       bool     `bson:"is_premium" json:"is_premium"`
	Modules       []Module `bson:"modules" json:"modules"`
}

// Question is one quiz question. Matching is against the English answer text.
type Question struct {
	TextEn   string   `bson:"text_en" json:"text_en"`
	TextHa   string   `bson:"text_ha" json:"text_ha"`
	Options  []string `bson:"options_en" json:"options_en"`
	AnswerEn string   `bson:"answer_en" json:"-"`
}

// Quiz is a scored assessment, optionally attached to a course.
type Quiz struct {
	ID          string     `bson:"_id" json:"id"`
	CourseID    string     `bson:"course_id,omitempty" json:"course_id,omitempty"`
	TitleEn     string     `bson:"title_en" json:"title_en"`
	TitleHa     string     `bson:"title_ha" json:"title_ha"`
	Questions   []Question `bson:"questions" json:"questions"`
	PassPercent int        `bson:"pass_percent" json:"pass_percent"`
}

// Progress tracks one user's (or anonymous session's) position in a course.
// Coins earned through the hub accrue here, not on the account balance.
type Progress struct {
	UserID           string         `bson:"user_id" json:"user_id"`
	CourseID         string         `bson:"course_id" json:"course_id"`
	LessonsCompleted []string       `bson:"lessons_completed" json:"lessons_completed"`
	QuizScores       map[string]int `bson:"quiz_scores" json:"quiz_scores"`
	CurrentLesson    string         `bson:"current_lesson" json:"current_lesson"`
	CoinsEarned      int64          `bson:"coins_earned" json:"coins_earned"`
	Badges           []string       `bson:"badges_earned" json:"badges_earned"`
	StartedAt        time.Time      `bson:"started_at" json:"started_at"`
	UpdatedAt        time.Time      `bson:"updated_at" json:"updated_at"`
}

// Completed reports whether a lesson is already marked done.
func (p *Progress) Completed(lessonID string) bool {
	for _, l := range p.LessonsCompleted {
		if l == lessonID {
			return true
		}
	}
	return false
}

// HasBadge reports whether a badge was already awarded.
func (p *Progress) HasBadge(name string) bool {
	for _, b := range p.Badges {
		if b == name {
			return true
		}
	}
	return false
}

// CatalogStore persists courses and quizzes.
type CatalogStore interface {
	UpsertCourse(ctx context.Context, c Course) error
	InsertCourseIfMissing(ctx context.Context, c Course) error
	FindCourse(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	InsertQuizIfMissing(ctx context.Context, q Quiz) error
	FindQuiz(ctx context.Context, id string) (*Quiz, error)
}

// ProgressStore persists per-user course progress.
type ProgressStore interface {
	FindProgress(ctx context.Context, userID, courseID string) (*Progress, error)
	SaveProgress(ctx context.Context, p *Progress) error
	ListProgress(ctx context.Context, userID string) ([]Progress, error)
	DeleteProgress(ctx context.Context, userID, courseID string) error
}

// WebinarRegistration is a signup for the live sessions mailing list.
type WebinarRegistration struct {
	Email        string    `bson:"_id" json:"email"`
	FullName     string    `bson:"full_name" json:"full_name"`
	RegisteredAt time.Time `bson:"registered_at" json:"registered_at"`
	Unsubscribed bool      `bson:"unsubscribed" json:"unsubscribed"`
}

// WebinarStore persists webinar signups.
type WebinarStore interface {
	UpsertRegistration(ctx context.Context, r WebinarRegistration) error
	FindRegistration(ctx context.Context, email string) (*WebinarRegistration, error)
}
