package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ficore.org/internal/identity"
	"ficore.org/internal/learning"
	"ficore.org/internal/session"
)

// catalogFilter resolves the catalog view: an explicit session filter wins,
// then the authenticated role, then everything.
func catalogFilter(r *http.Request) string {
	s := sessionFrom(r)
	if s.RoleFilter != "" {
		return s.RoleFilter
	}
	if u := userFrom(r); u != nil {
		return u.Role
	}
	return "all"
}

func (a *API) handleHubMain(w http.ResponseWriter, r *http.Request) {
	courses, err := a.hub.Courses(r.Context(), catalogFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}
	writeOK(w, "", map[string]any{
		"courses":     courses,
		"role_filter": catalogFilter(r),
		"language":    sessionFrom(r).Language,
	})
}

func (a *API) handleHubCourse(w http.ResponseWriter, r *http.Request) {
	course, err := a.hub.Course(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, learning.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "course lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"course": course})
}

func (a *API) handleHubLesson(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("course")
	lessonID := r.URL.Query().Get("lesson")
	course, err := a.hub.Course(r.Context(), courseID)
	if err != nil {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			if l.ID == lessonID {
				writeOK(w, "", map[string]any{"lesson": l, "module_id": m.ID})
				return
			}
		}
	}
	writeError(w, http.StatusNotFound, "lesson not found")
}

func (a *API) handleHubQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.hub.Quiz(r.Context(), r.URL.Query().Get("quiz"))
	if err != nil {
		writeError(w, http.StatusNotFound, "quiz not found")
		return
	}
	// Answers are stripped by the json:"-" tag on Question.AnswerEn.
	writeOK(w, "", map[string]any{"quiz": quiz})
}

type lessonActionRequest struct {
	CourseID string `json:"course_id"`
	LessonID string `json:"lesson_id"`
	Action   string `json:"action"`
}

func (a *API) handleLessonAction(w http.ResponseWriter, r *http.Request) {
	var req lessonActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action != "mark_complete" {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	reward, err := a.hub.MarkLessonComplete(r.Context(), owner(r), req.CourseID, req.LessonID)
	if err != nil {
		if errors.Is(err, learning.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course or lesson not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "progress update failed")
		return
	}
	writeOK(w, "Lesson completed.", map[string]any{"reward": reward})
}

type quizActionRequest struct {
	QuizID  string   `json:"quiz_id"`
	Answers []string `json:"answers"`
}

func (a *API) handleQuizAction(w http.ResponseWriter, r *http.Request) {
	var req quizActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var result learning.QuizResult
	var err error
	if req.QuizID == learning.RealityCheckQuizID {
		// The score lives on the session; a session without one marks
		// the first take.
		s := sessionFrom(r)
		result, err = a.hub.SubmitRealityCheck(r.Context(), owner(r), req.Answers, s.RealityCheckScore == nil)
		if err == nil {
			if s, serr := a.sessions.SetRealityCheckScore(r.Context(), s, result.Score); serr == nil {
				a.setSessionCookie(w, s)
			}
		}
	} else {
		result, err = a.hub.SubmitQuiz(r.Context(), owner(r), req.QuizID, req.Answers)
	}
	if err != nil {
		switch {
		case errors.Is(err, learning.ErrNotFound):
			writeError(w, http.StatusNotFound, "quiz not found")
		case errors.Is(err, learning.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "quiz submission failed")
		}
		return
	}
	writeOK(w, "", map[string]any{"result": result})
}

type roleFilterRequest struct {
	Filter string `json:"filter"`
}

func (a *API) handleSetRoleFilter(w http.ResponseWriter, r *http.Request) {
	var req roleFilterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := a.sessions.SetRoleFilter(r.Context(), sessionFrom(r), req.Filter)
	if err != nil {
		if errors.Is(err, session.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, "unknown role filter")
			return
		}
		writeError(w, http.StatusInternalServerError, "filter update failed")
		return
	}
	a.setSessionCookie(w, s)
	writeOK(w, "", map[string]any{"role_filter": s.RoleFilter})
}

func (a *API) handleHubSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.hub.Summary(r.Context(), owner(r), sessionFrom(r).Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}
	writeOK(w, "", map[string]any{"summary": summaries})
}

func (a *API) handleUploadCourse(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var course learning.Course
	if err := decodeJSON(r, &course); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.hub.UploadCourse(r.Context(), u.ID, course); err != nil {
		if errors.Is(err, learning.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	writeOK(w, "Course saved.", nil)
}

func (a *API) handleDeleteProgress(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")
	courseID := r.URL.Query().Get("course_id")
	if userID == "" || courseID == "" {
		writeError(w, http.StatusBadRequest, "user_id and course_id are required")
		return
	}
	if err := a.hub.DeleteProgress(r.Context(), u.ID, userID, courseID); err != nil {
		if errors.Is(err, learning.ErrNotFound) {
			writeError(w, http.StatusNotFound, "progress record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeOK(w, "Progress deleted.", nil)
}

type webinarRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (a *API) handleRegisterWebinar(w http.ResponseWriter, r *http.Request) {
	var req webinarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.hub.RegisterWebinar(r.Context(), req.Email, req.FullName); err != nil {
		if errors.Is(err, learning.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeOK(w, "You are registered for upcoming webinars.", nil)
}

func (a *API) handleUnsubscribeWebinar(w http.ResponseWriter, r *http.Request) {
	if err := a.hub.UnsubscribeWebinar(r.Context(), mux.Vars(r)["email"]); err != nil {
		writeError(w, http.StatusInternalServerError, "unsubscribe failed")
		return
	}
	writeOK(w, "You have been unsubscribed.", nil)
}
