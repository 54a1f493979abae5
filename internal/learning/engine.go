package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/obs"
	"ficore.org/internal/tax"
)

// Badge names awarded by the hub.
const (
	BadgeDigitalStarter = "Digital Starter"
	BadgeRealityCheck   = "Reality Check"
)

// DefaultPassPercent applies when a quiz does not set its own pass mark.
const DefaultPassPercent = 60

// RealityCheckQuizID is the self-assessment quiz. Its score lives on the
// caller's session, never on course progress.
const RealityCheckQuizID = "reality_check_quiz"

// lessonRewards maps "courseID-lessonID" to the coins granted on first
// completion, with an optional badge.
var lessonRewards = map[string]struct {
	Coins int64
	Badge string
}{
	"tax_reforms_2025-module-1-lesson-1":    {Coins: 3},
	"digital_foundations-module-1-lesson-1": {Coins: 3, Badge: BadgeDigitalStarter},
}

// quizRewards maps quiz IDs to coins granted on a passing score.
var quizRewards = map[string]int64{
	"quiz-tax-reforms-2025": 3,
	"reality_check_quiz":    3,
}

// Engine runs lesson completion, quiz scoring and the hub summary.
type Engine struct {
	catalog  CatalogStore
	progress ProgressStore
	webinars WebinarStore
	audit    *audit.Log
	now      func() time.Time
}

// NewEngine wires the engine over its stores.
func NewEngine(catalog CatalogStore, progress ProgressStore, webinars WebinarStore, auditLog *audit.Log) *Engine {
	return &Engine{
		catalog:  catalog,
		progress: progress,
		webinars: webinars,
		audit:    auditLog,
		now:      time.Now,
	}
}

// Courses lists the catalog visible to a role or catalog filter. Courses
// tagged "all" show for everyone; others require the value to appear in
// RolesAllowed. The "all" filter and admins see everything.
func (e *Engine) Courses(ctx context.Context, role string) ([]Course, error) {
	all, err := e.catalog.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	if role == "" || role == "all" || role == "admin" {
		return all, nil
	}
	out := make([]Course, 0, len(all))
	for _, c := range all {
		if roleAllowed(c.RolesAllowed, role) {
			out = append(out, c)
		}
	}
	return out, nil
}

func roleAllowed(allowed []string, role string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "all" || a == role {
			return true
		}
	}
	return false
}

// Course fetches one course with its modules and lessons.
func (e *Engine) Course(ctx context.Context, id string) (*Course, error) {
	return e.catalog.FindCourse(ctx, id)
}

// Quiz fetches one quiz. Answer keys never serialize to JSON.
func (e *Engine) Quiz(ctx context.Context, id string) (*Quiz, error) {
	return e.catalog.FindQuiz(ctx, id)
}

// LessonReward reports what a completion earned.
type LessonReward struct {
	Coins          int64  `json:"coins"`
	Badge          string `json:"badge,omitempty"`
	AlreadyDone    bool   `json:"already_done"`
	CoinsEarned    int64  `json:"coins_earned"`
	LessonsDone    int    `json:"lessons_done"`
	CourseComplete bool   `json:"course_complete"`
}

// MarkLessonComplete records a lesson as done. Completion is idempotent:
// repeating a lesson never grants its reward twice. Rewarded coins accrue on
// the progress document only.
func (e *Engine) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID string) (LessonReward, error) {
	course, err := e.catalog.FindCourse(ctx, courseID)
	if err != nil {
		return LessonReward{}, err
	}
	lesson, next := findLesson(course, lessonID)
	if lesson == nil {
		return LessonReward{}, fmt.Errorf("%w: lesson %s", ErrNotFound, lessonID)
	}

	p, err := e.loadOrStartProgress(ctx, userID, courseID)
	if err != nil {
		return LessonReward{}, err
	}
	if p.Completed(lessonID) {
		return LessonReward{AlreadyDone: true, CoinsEarned: p.CoinsEarned, LessonsDone: len(p.LessonsCompleted)}, nil
	}

	p.LessonsCompleted = append(p.LessonsCompleted, lessonID)
	p.CurrentLesson = next
	p.UpdatedAt = e.now()

	reward := LessonReward{}
	if r, ok := lessonRewards[courseID+"-"+lessonID]; ok {
		p.CoinsEarned += r.Coins
		reward.Coins = r.Coins
		if r.Badge != "" && !p.HasBadge(r.Badge) {
			p.Badges = append(p.Badges, r.Badge)
			reward.Badge = r.Badge
		}
	}
	if err := e.progress.SaveProgress(ctx, p); err != nil {
		return LessonReward{}, err
	}
	obs.ObserveLessonCompleted()
	e.audit.Append(ctx, userID, "lesson_completed", map[string]any{
		"course_id": courseID,
		"lesson_id": lessonID,
		"coins":     reward.Coins,
	})
	reward.CoinsEarned = p.CoinsEarned
	reward.LessonsDone = len(p.LessonsCompleted)
	reward.CourseComplete = len(p.LessonsCompleted) >= lessonCount(course)
	return reward, nil
}

func (e *Engine) loadOrStartProgress(ctx context.Context, userID, courseID string) (*Progress, error) {
	p, err := e.progress.FindProgress(ctx, userID, courseID)
	if err == nil {
		return p, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	return &Progress{
		UserID:     userID,
		CourseID:   courseID,
		QuizScores: map[string]int{},
		StartedAt:  e.now(),
		UpdatedAt:  e.now(),
	}, nil
}

// findLesson returns the lesson and the ID of the one after it, in module
// order.
func findLesson(c *Course, lessonID string) (*Lesson, string) {
	flat := []Lesson{}
	for _, m := range c.Modules {
		flat = append(flat, m.Lessons...)
	}
	for i := range flat {
		if flat[i].ID == lessonID {
			next := ""
			if i+1 < len(flat) {
				next = flat[i+1].ID
			}
			return &flat[i], next
		}
	}
	return nil, ""
}

func lessonCount(c *Course) int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// QuizResult reports a graded submission.
type QuizResult struct {
	QuizID       string `json:"quiz_id"`
	Score        int    `json:"score"`
	Total        int    `json:"total"`
	Percent      int    `json:"percent"`
	Passed       bool   `json:"passed"`
	CoinsAwarded int64  `json:"coins_awarded"`
	Badge        string `json:"badge,omitempty"`
}

// SubmitQuiz grades answers against the English answer key. A pass at or
// above the quiz's pass mark grants the quiz's coin reward the first time
// only, recorded on the course progress. The reality check quiz never touches
// progress; callers route it to SubmitRealityCheck.
func (e *Engine) SubmitQuiz(ctx context.Context, userID, quizID string, answers []string) (QuizResult, error) {
	quiz, err := e.catalog.FindQuiz(ctx, quizID)
	if err != nil {
		return QuizResult{}, err
	}
	res, err := gradeQuiz(quiz, answers)
	if err != nil {
		return QuizResult{}, err
	}

	courseID := quiz.CourseID
	if courseID == "" {
		courseID = quizID
	}
	p, err := e.loadOrStartProgress(ctx, userID, courseID)
	if err != nil {
		return QuizResult{}, err
	}
	_, taken := p.QuizScores[quizID]
	if p.QuizScores == nil {
		p.QuizScores = map[string]int{}
	}
	p.QuizScores[quizID] = res.Score
	p.UpdatedAt = e.now()

	if res.Passed && !taken {
		if coins, ok := quizRewards[quizID]; ok {
			p.CoinsEarned += coins
			res.CoinsAwarded = coins
		}
	}
	if err := e.progress.SaveProgress(ctx, p); err != nil {
		return QuizResult{}, err
	}
	e.auditQuiz(ctx, userID, res)
	return res, nil
}

// SubmitRealityCheck grades the self-assessment quiz. Every submission
// passes; coins and the badge are granted only on firstTime, which the caller
// derives from the session's stored score. No progress record is written, the
// score belongs on the session.
func (e *Engine) SubmitRealityCheck(ctx context.Context, userID string, answers []string, firstTime bool) (QuizResult, error) {
	quiz, err := e.catalog.FindQuiz(ctx, RealityCheckQuizID)
	if err != nil {
		return QuizResult{}, err
	}
	res, err := gradeQuiz(quiz, answers)
	if err != nil {
		return QuizResult{}, err
	}
	if firstTime {
		res.CoinsAwarded = quizRewards[RealityCheckQuizID]
		res.Badge = BadgeRealityCheck
	}
	e.auditQuiz(ctx, userID, res)
	return res, nil
}

// gradeQuiz scores answers against the English answer key. A zero pass mark
// is the default pass mark for course quizzes; the reality check keeps it at
// zero so every submission passes.
func gradeQuiz(quiz *Quiz, answers []string) (QuizResult, error) {
	if len(answers) != len(quiz.Questions) {
		return QuizResult{}, fmt.Errorf("%w: expected %d answers, got %d", ErrInvalidInput, len(quiz.Questions), len(answers))
	}
	score := 0
	for i, q := range quiz.Questions {
		if strings.EqualFold(strings.TrimSpace(answers[i]), q.AnswerEn) {
			score++
		}
	}
	total := len(quiz.Questions)
	percent := 0
	if total > 0 {
		percent = score * 100 / total
	}
	passMark := quiz.PassPercent
	if passMark == 0 && quiz.ID != RealityCheckQuizID {
		passMark = DefaultPassPercent
	}
	return QuizResult{
		QuizID:  quiz.ID,
		Score:   score,
		Total:   total,
		Percent: percent,
		Passed:  percent >= passMark,
	}, nil
}

func (e *Engine) auditQuiz(ctx context.Context, userID string, res QuizResult) {
	e.audit.Append(ctx, userID, "quiz_submitted", map[string]any{
		"quiz_id": res.QuizID,
		"score":   res.Score,
		"total":   res.Total,
		"passed":  res.Passed,
	})
}

// CourseSummary is one row of the hub overview page.
type CourseSummary struct {
	CourseID        string   `json:"course_id"`
	Title           string   `json:"title"`
	LessonsTotal    int      `json:"lessons_total"`
	LessonsDone     int      `json:"lessons_done"`
	PercentComplete int      `json:"percent_complete"`
	CoinsEarned     int64    `json:"coins_earned"`
	CoinsDisplay    string   `json:"coins_display"`
	Badges          []string `json:"badges"`
	Certificate     bool     `json:"certificate"`
	CurrentLesson   string   `json:"current_lesson"`
}

// Summary lists a user's progress across every course they have touched.
// A certificate is earned when every lesson in a course is complete.
func (e *Engine) Summary(ctx context.Context, userID, language string) ([]CourseSummary, error) {
	records, err := e.progress.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]CourseSummary, 0, len(records))
	for _, p := range records {
		course, err := e.catalog.FindCourse(ctx, p.CourseID)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		total := lessonCount(course)
		pct := 0
		if total > 0 {
			pct = len(p.LessonsCompleted) * 100 / total
		}
		title := course.TitleEn
		if language == "ha" && course.TitleHa != "" {
			title = course.TitleHa
		}
		out = append(out, CourseSummary{
			CourseID:        p.CourseID,
			Title:           title,
			LessonsTotal:    total,
			LessonsDone:     len(p.LessonsCompleted),
			PercentComplete: pct,
			CoinsEarned:     p.CoinsEarned,
			CoinsDisplay:    tax.FormatNaira(float64(p.CoinsEarned)),
			Badges:          p.Badges,
			Certificate:     total > 0 && len(p.LessonsCompleted) >= total,
			CurrentLesson:   p.CurrentLesson,
		})
	}
	return out, nil
}

// UploadCourse lets an admin add or replace a catalog entry.
func (e *Engine) UploadCourse(ctx context.Context, actor string, c Course) error {
	if c.ID == "" || c.TitleEn == "" {
		return fmt.Errorf("%w: course id and title are required", ErrInvalidInput)
	}
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if !ValidContentType(l.ContentType) {
				return fmt.Errorf("%w: lesson %s has unknown content type %q", ErrInvalidInput, l.ID, l.ContentType)
			}
		}
	}
	if err := e.catalog.UpsertCourse(ctx, c); err != nil {
		return err
	}
	e.audit.Append(ctx, actor, "course_uploaded", map[string]any{"course_id": c.ID})
	return nil
}

// RegisterWebinar signs an email up for live sessions. Re-registering an
// unsubscribed address re-subscribes it.
func (e *Engine) RegisterWebinar(ctx context.Context, email, fullName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid email required", ErrInvalidInput)
	}
	err := e.webinars.UpsertRegistration(ctx, WebinarRegistration{
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		RegisteredAt: e.now(),
	})
	if err != nil {
		return err
	}
	e.audit.Append(ctx, email, "webinar_registered", nil)
	return nil
}

// UnsubscribeWebinar flags an address as unsubscribed; unknown addresses are
// a no-op so the link in old emails never errors.
func (e *Engine) UnsubscribeWebinar(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	reg, err := e.webinars.FindRegistration(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	reg.Unsubscribed = true
	if err := e.webinars.UpsertRegistration(ctx, *reg); err != nil {
		return err
	}
	e.audit.Append(ctx, email, "webinar_unsubscribed", nil)
	return nil
}

// DeleteProgress removes one progress record. Rewards are otherwise
// monotone, so removal is reserved for admins and always audited.
func (e *Engine) DeleteProgress(ctx context.Context, actor, userID, courseID string) error {
	if err := e.progress.DeleteProgress(ctx, userID, courseID); err != nil {
		return err
	}
	e.audit.Append(ctx, actor, "progress_deleted", map[string]any{
		"user_id":   userID,
		"course_id": courseID,
	})
	return nil
}

// SeedIfMissing inserts the canonical catalog without clobbering admin
// uploads: each course and quiz is inserted only when absent.
func (e *Engine) SeedIfMissing(ctx context.Context) error {
	for _, c := range SeedCourses() {
		if err := e.catalog.InsertCourseIfMissing(ctx, c); err != nil {
			return err
		}
	}
	for _, q := range SeedQuizzes() {
		if err := e.catalog.InsertQuizIfMissing(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
