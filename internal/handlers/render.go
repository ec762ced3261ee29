package handlers

import (
	"net/http"
	"net/url"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/web"
)

const flashCookie = "metube_flash"

// page assembles the PageData envelope: session user from the request
// context, any pending flash notice (consumed here), and the page payload.
func page(w http.ResponseWriter, r *http.Request, title, errMsg string, data any) web.PageData {
	pd := web.PageData{
		Title: title,
		Error: errMsg,
		Flash: takeFlash(w, r),
		Data:  data,
	}
	if user, ok := middleware.UserFrom(r.Context()); ok {
		pd.LoggedIn = true
		pd.User = user
	}
	return pd
}

func notFound(w http.ResponseWriter, r *http.Request, pages *web.Renderer, title string) {
	pages.Render(w, r, http.StatusNotFound, "not_found", page(w, r, title, "", nil))
}

// setFlash queues a one-shot notice shown on the next rendered page.
func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the pending flash notice, if any.
func takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}

func setSessionCookie(w http.ResponseWriter, session auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
