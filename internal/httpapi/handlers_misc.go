package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ficore.org/internal/session"
	"ficore.org/internal/translations"
)

type changeLanguageRequest struct {
	Language string `json:"language"`
}

func (a *API) handleChangeLanguage(w http.ResponseWriter, r *http.Request) {
	var req changeLanguageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := a.sessions.SetLanguage(r.Context(), sessionFrom(r), req.Language)
	if err != nil {
		if errors.Is(err, session.ErrInvalidLang) {
			writeError(w, http.StatusBadRequest, "unsupported language")
			return
		}
		writeError(w, http.StatusInternalServerError, "language update failed")
		return
	}
	a.setSessionCookie(w, s)
	writeOK(w, "", map[string]any{"language": s.Language})
}

func (a *API) handleTranslations(w http.ResponseWriter, r *http.Request) {
	lang := mux.Vars(r)["lang"]
	if !translations.Supported(lang) {
		writeError(w, http.StatusNotFound, "unsupported language")
		return
	}
	writeOK(w, "", map[string]any{
		"language":     lang,
		"translations": translations.Table(lang),
	})
}

func (a *API) handleTranslate(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = sessionFrom(r).Language
	}
	writeOK(w, "", map[string]any{
		"key":  key,
		"lang": lang,
		"text": translations.T(lang, key),
	})
}
