package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/models"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func newUserHandler(t *testing.T, users *fakeUserStore) (UserHandler, *fakeSessionManager) {
	t.Helper()
	sessions := &fakeSessionManager{}
	handler := UserHandler{
		Users:    users,
		Videos:   newFakeVideoStore(),
		Sessions: sessions,
		Avatars:  newFakeUploadStore(),
		Pages:    newTestRenderer(t),
		NowFunc:  func() time.Time { return testNow },
	}
	return handler, sessions
}

func TestUserHandlerJoinCreatesAccount(t *testing.T) {
	users := newFakeUserStore()
	handler, _ := newUserHandler(t, users)

	req := formRequest("/join", url.Values{
		"name":      {"Alice"},
		"username":  {"alice"},
		"email":     {"Alice@Example.com"},
		"password":  {"supersafe"},
		"password2": {"supersafe"},
		"location":  {"Seoul"},
	})
	rec := httptest.NewRecorder()

	handler.PostJoin(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Fatalf("expected redirect to /login got %q", got)
	}

	stored, err := users.FindByUsername(req.Context(), "alice")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if stored.Email != "alice@example.com" {
		t.Fatalf("expected email to be lowercased, got %q", stored.Email)
	}
	if stored.SocialOnly {
		t.Fatal("form signups must not be social-only")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestUserHandlerJoinPasswordMismatch(t *testing.T) {
	users := newFakeUserStore()
	handler, _ := newUserHandler(t, users)

	req := formRequest("/join", url.Values{
		"username":  {"alice"},
		"email":     {"alice@example.com"},
		"password":  {"supersafe"},
		"password2": {"different"},
	})
	rec := httptest.NewRecorder()

	handler.PostJoin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Password confirmation does not match.") {
		t.Fatal("expected the mismatch notice in the page")
	}
	if len(users.users) != 0 {
		t.Fatal("no user should have been created")
	}
}

func TestUserHandlerJoinDuplicateIdentifier(t *testing.T) {
	users := newFakeUserStore()
	users.users["user-1"] = models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	handler, _ := newUserHandler(t, users)

	req := formRequest("/join", url.Values{
		"username":  {"alice"},
		"email":     {"other@example.com"},
		"password":  {"supersafe"},
		"password2": {"supersafe"},
	})
	rec := httptest.NewRecorder()

	handler.PostJoin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already taken") {
		t.Fatal("expected the duplicate notice in the page")
	}
}

func TestUserHandlerJoinRateLimited(t *testing.T) {
	handler, _ := newUserHandler(t, newFakeUserStore())
	handler.Limiter = denyAllLimiter{}

	req := formRequest("/join", url.Values{
		"username":  {"alice"},
		"email":     {"alice@example.com"},
		"password":  {"supersafe"},
		"password2": {"supersafe"},
	})
	rec := httptest.NewRecorder()

	handler.PostJoin(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 got %d", rec.Code)
	}
}

func TestUserHandlerLogin(t *testing.T) {
	users := newFakeUserStore()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users.users["user-1"] = models.User{ID: "user-1", Username: "alice", Password: string(hashed)}

	handler, sessions := newUserHandler(t, users)

	req := formRequest("/login", url.Values{"username": {"alice"}, "password": {"password123"}})
	rec := httptest.NewRecorder()

	handler.PostLogin(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sessions.issued) != 1 || sessions.issued[0] != "user-1" {
		t.Fatalf("expected a session for user-1, got %v", sessions.issued)
	}

	cookie := cookieByName(t, rec, middleware.SessionCookie)
	if cookie == nil || cookie.Value != "token-user-1" {
		t.Fatalf("expected session cookie to carry the issued token, got %+v", cookie)
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be http-only")
	}
}

func TestUserHandlerLoginHidesSocialAccounts(t *testing.T) {
	users := newFakeUserStore()
	users.users["user-1"] = models.User{ID: "user-1", Username: "alice", SocialOnly: true}
	handler, sessions := newUserHandler(t, users)

	req := formRequest("/login", url.Values{"username": {"alice"}, "password": {"whatever"}})
	rec := httptest.NewRecorder()

	handler.PostLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "An account with this username does not exist.") {
		t.Fatal("social accounts must be indistinguishable from unknown usernames")
	}
	if len(sessions.issued) != 0 {
		t.Fatal("no session should have been issued")
	}
}

func TestUserHandlerLoginWrongPassword(t *testing.T) {
	users := newFakeUserStore()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	users.users["user-1"] = models.User{ID: "user-1", Username: "alice", Password: string(hashed)}
	handler, _ := newUserHandler(t, users)

	req := formRequest("/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	rec := httptest.NewRecorder()

	handler.PostLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Wrong password.") {
		t.Fatal("expected the wrong password notice in the page")
	}
}

func TestUserHandlerLogout(t *testing.T) {
	handler, sessions := newUserHandler(t, newFakeUserStore())

	req := httptest.NewRequest(http.MethodGet, "/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "token-user-1"})
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d", rec.Code)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "token-user-1" {
		t.Fatalf("expected the session to be revoked, got %v", sessions.revoked)
	}

	cookie := cookieByName(t, rec, middleware.SessionCookie)
	if cookie == nil || cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Fatalf("expected the session cookie to be cleared, got %+v", cookie)
	}
}

func TestUserHandlerProfileNotFound(t *testing.T) {
	handler, _ := newUserHandler(t, newFakeUserStore())

	req := httptest.NewRequest(http.MethodGet, "/users/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	handler.Profile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
}

func TestUserHandlerPostEditRejectsTakenUsername(t *testing.T) {
	users := newFakeUserStore()
	users.users["user-1"] = models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	users.users["user-2"] = models.User{ID: "user-2", Username: "bob", Email: "bob@example.com"}
	handler, _ := newUserHandler(t, users)

	req := asUser(formRequest("/users/edit", url.Values{
		"name":     {"Alice"},
		"username": {"bob"},
		"email":    {"alice@example.com"},
	}), users.users["user-1"])
	rec := httptest.NewRecorder()

	handler.PostEdit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if users.users["user-1"].Username != "alice" {
		t.Fatal("the username must not have changed")
	}
}

func TestUserHandlerPostEditKeepsOwnIdentifiers(t *testing.T) {
	users := newFakeUserStore()
	users.users["user-1"] = models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	handler, _ := newUserHandler(t, users)

	req := asUser(formRequest("/users/edit", url.Values{
		"name":     {"Alice Renamed"},
		"username": {"alice"},
		"email":    {"alice@example.com"},
		"location": {"Busan"},
	}), users.users["user-1"])
	rec := httptest.NewRecorder()

	handler.PostEdit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d: %s", rec.Code, rec.Body.String())
	}
	if users.users["user-1"].Name != "Alice Renamed" || users.users["user-1"].Location != "Busan" {
		t.Fatalf("expected the profile to be updated, got %+v", users.users["user-1"])
	}
}

func TestUserHandlerChangePasswordSocialOnly(t *testing.T) {
	users := newFakeUserStore()
	me := models.User{ID: "user-1", Username: "alice", SocialOnly: true}
	users.users["user-1"] = me
	handler, _ := newUserHandler(t, users)

	req := asUser(formRequest("/users/change-password", url.Values{}), me)
	rec := httptest.NewRecorder()

	handler.PostChangePassword(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Fatalf("expected redirect to / got %q", got)
	}
	if cookieByName(t, rec, flashCookie) == nil {
		t.Fatal("expected a flash notice for social-only accounts")
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	users := newFakeUserStore()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("oldpass"), bcrypt.DefaultCost)
	me := models.User{ID: "user-1", Username: "alice", Password: string(hashed)}
	users.users["user-1"] = me
	handler, _ := newUserHandler(t, users)

	req := asUser(formRequest("/users/change-password", url.Values{
		"oldPassword":             {"oldpass"},
		"newPassword":             {"newpass"},
		"newPasswordConfirmation": {"newpass"},
	}), me)
	rec := httptest.NewRecorder()

	handler.PostChangePassword(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/users/logout" {
		t.Fatalf("expected redirect to /users/logout got %q", got)
	}
	if bcrypt.CompareHashAndPassword([]byte(users.users["user-1"].Password), []byte("newpass")) != nil {
		t.Fatal("expected the new password to be stored hashed")
	}
}

func TestUserHandlerChangePasswordWrongCurrent(t *testing.T) {
	users := newFakeUserStore()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("oldpass"), bcrypt.DefaultCost)
	me := models.User{ID: "user-1", Username: "alice", Password: string(hashed)}
	users.users["user-1"] = me
	handler, _ := newUserHandler(t, users)

	req := asUser(formRequest("/users/change-password", url.Values{
		"oldPassword":             {"wrong"},
		"newPassword":             {"newpass"},
		"newPasswordConfirmation": {"newpass"},
	}), me)
	rec := httptest.NewRecorder()

	handler.PostChangePassword(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "The current password is incorrect.") {
		t.Fatal("expected the incorrect password notice in the page")
	}
}

func TestUserHandlerGithubStartSetsStateCookie(t *testing.T) {
	handler, _ := newUserHandler(t, newFakeUserStore())
	handler.OAuth = fakeOAuthProvider{}

	req := httptest.NewRequest(http.MethodGet, "/users/github/start", nil)
	rec := httptest.NewRecorder()

	handler.GithubStart(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302 got %d", rec.Code)
	}

	cookie := cookieByName(t, rec, oauthStateCookie)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a state cookie to be set")
	}
	if !strings.Contains(rec.Header().Get("Location"), "state="+cookie.Value) {
		t.Fatal("expected the redirect to carry the state nonce")
	}
}

func TestUserHandlerGithubFinishCreatesSocialAccount(t *testing.T) {
	users := newFakeUserStore()
	handler, sessions := newUserHandler(t, users)
	handler.OAuth = fakeOAuthProvider{identity: auth.Identity{
		Name:     "Alice",
		Username: "alice-gh",
		Email:    "alice@example.com",
	}}

	req := httptest.NewRequest(http.MethodGet, "/users/github/finish?state=nonce&code=authcode", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "nonce"})
	rec := httptest.NewRecorder()

	handler.GithubFinish(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Fatalf("expected redirect to / got %q", got)
	}

	stored, err := users.FindByEmail(req.Context(), "alice@example.com")
	if err != nil {
		t.Fatalf("expected a linked account: %v", err)
	}
	if !stored.SocialOnly || stored.Password != "" {
		t.Fatalf("expected a passwordless social-only account, got %+v", stored)
	}
	if len(sessions.issued) != 1 || sessions.issued[0] != stored.ID {
		t.Fatalf("expected a session for the new account, got %v", sessions.issued)
	}
}

func TestUserHandlerGithubFinishLinksExistingAccount(t *testing.T) {
	users := newFakeUserStore()
	users.users["user-1"] = models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	handler, sessions := newUserHandler(t, users)
	handler.OAuth = fakeOAuthProvider{identity: auth.Identity{Username: "alice-gh", Email: "alice@example.com"}}

	req := httptest.NewRequest(http.MethodGet, "/users/github/finish?state=nonce&code=authcode", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "nonce"})
	rec := httptest.NewRecorder()

	handler.GithubFinish(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d", rec.Code)
	}
	if len(users.users) != 1 {
		t.Fatalf("no duplicate account should have been created, got %d users", len(users.users))
	}
	if len(sessions.issued) != 1 || sessions.issued[0] != "user-1" {
		t.Fatalf("expected a session for the existing account, got %v", sessions.issued)
	}
}

func TestUserHandlerGithubFinishStateMismatch(t *testing.T) {
	handler, sessions := newUserHandler(t, newFakeUserStore())
	handler.OAuth = fakeOAuthProvider{identity: auth.Identity{Email: "alice@example.com"}}

	req := httptest.NewRequest(http.MethodGet, "/users/github/finish?state=tampered&code=authcode", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "nonce"})
	rec := httptest.NewRecorder()

	handler.GithubFinish(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303 got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Fatalf("expected redirect to /login got %q", got)
	}
	if len(sessions.issued) != 0 {
		t.Fatal("no session should have been issued on a state mismatch")
	}
}
