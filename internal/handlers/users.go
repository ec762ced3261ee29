package handlers

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/logging"
	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/models"
	"github.com/metube/backend/internal/repositories"
	"github.com/metube/backend/internal/web"
)

const oauthStateCookie = "metube_oauth_state"

// maxAvatarBytes caps avatar uploads at 3 MB.
const maxAvatarBytes = 3 << 20

// UserHandler implements account pages: join, login, profile, password
// change and the GitHub OAuth flow.
type UserHandler struct {
	Users    UserStore
	Videos   VideoStore
	Sessions SessionManager
	OAuth    OAuthProvider
	Avatars  UploadStore
	Pages    *web.Renderer
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

// GetJoin renders the registration form.
func (h UserHandler) GetJoin(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, http.StatusOK, "join", page(w, r, "Create Account", "", nil))
}

// PostJoin registers a local account.
func (h UserHandler) PostJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "join") {
		logger.Warn("join rate limited", "ip", clientIP(r))
		h.Pages.Render(w, r, http.StatusTooManyRequests, "join",
			page(w, r, "Join", "Too many attempts. Try again later.", nil))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.Pages.Render(w, r, http.StatusBadRequest, "join", page(w, r, "Join", "Invalid form submission.", nil))
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(strings.ToLower(r.PostFormValue("email")))
	password := r.PostFormValue("password")
	password2 := r.PostFormValue("password2")
	location := strings.TrimSpace(r.PostFormValue("location"))

	if username == "" || email == "" || password == "" {
		h.Pages.Render(w, r, http.StatusBadRequest, "join",
			page(w, r, "Join", "Username, email and password are required.", nil))
		return
	}

	if password != password2 {
		h.Pages.Render(w, r, http.StatusBadRequest, "join",
			page(w, r, "Join", "Password confirmation does not match.", nil))
		return
	}

	exists, err := h.Users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		logger.Error("join existence check failed", "error", err)
		h.Pages.Render(w, r, http.StatusInternalServerError, "join",
			page(w, r, "Join", "Unable to create account right now.", nil))
		return
	}
	if exists {
		h.Pages.Render(w, r, http.StatusBadRequest, "join",
			page(w, r, "Join", "This username/email is already taken.", nil))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("join failed to hash password", "error", err)
		h.Pages.Render(w, r, http.StatusInternalServerError, "join",
			page(w, r, "Join", "Unable to create account right now.", nil))
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  username,
		Email:     email,
		Password:  string(hashed),
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			h.Pages.Render(w, r, http.StatusBadRequest, "join",
				page(w, r, "Join", "This username/email is already taken.", nil))
			return
		}
		logger.Error("join failed to create user", "error", err)
		h.Pages.Render(w, r, http.StatusInternalServerError, "join",
			page(w, r, "Join", "Unable to create account right now.", nil))
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// GetLogin renders the login form.
func (h UserHandler) GetLogin(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, http.StatusOK, "login", page(w, r, "Login", "", nil))
}

// PostLogin authenticates a local account. The lookup excludes social-only
// accounts, so a wrong username and a social account produce the same error.
func (h UserHandler) PostLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		logger.Warn("login rate limited", "ip", clientIP(r))
		h.Pages.Render(w, r, http.StatusTooManyRequests, "login",
			page(w, r, "Login", "Too many attempts. Try again later.", nil))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.Pages.Render(w, r, http.StatusBadRequest, "login", page(w, r, "Login", "Invalid form submission.", nil))
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	user, err := h.Users.FindLocalByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			h.Pages.Render(w, r, http.StatusBadRequest, "login",
				page(w, r, "Login", "An account with this username does not exist.", nil))
			return
		}
		logger.Error("login user lookup failed", "error", err)
		h.Pages.Render(w, r, http.StatusInternalServerError, "login",
			page(w, r, "Login", "Unable to log in right now.", nil))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		h.Pages.Render(w, r, http.StatusBadRequest, "login",
			page(w, r, "Login", "Wrong password.", nil))
		return
	}

	h.establishSession(w, r, user.ID, "/")
}

// Logout destroys the session unconditionally.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		h.Sessions.Revoke(r.Context(), cookie.Value)
	}
	clearSessionCookie(w)
	setFlash(w, "Bye Bye")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Profile renders a user's public page with their videos.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Users.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(w, r, h.Pages, "User not found")
			return
		}
		logging.FromContext(ctx).Error("profile lookup failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	videos, err := h.Videos.ListByOwner(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("profile videos lookup failed", "error", err, "userId", user.ID)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := struct {
		Profile models.User
		Videos  []models.Video
	}{Profile: user, Videos: videos}

	h.Pages.Render(w, r, http.StatusOK, "profile", page(w, r, user.Name+"'s Profile", "", data))
}

// GetEdit renders the profile edit form.
func (h UserHandler) GetEdit(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, http.StatusOK, "edit_profile", page(w, r, "Edit Profile", "", nil))
}

// PostEdit updates the profile, guarding username/email uniqueness against
// other accounts. The conflict check compares canonical user ids so a user's
// own record never blocks the update.
func (h UserHandler) PostEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	me, ok := middleware.UserFrom(ctx)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.Pages.Render(w, r, http.StatusBadRequest, "edit_profile",
			page(w, r, "Edit Profile", "Invalid form submission.", nil))
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(strings.ToLower(r.PostFormValue("email")))
	location := strings.TrimSpace(r.PostFormValue("location"))

	if email != me.Email {
		if taken, err := h.identifierTaken(me.ID, func() (models.User, error) { return h.Users.FindByEmail(ctx, email) }); err != nil {
			logger.Error("profile edit email check failed", "error", err)
			h.renderEditError(w, r, http.StatusInternalServerError, "Unable to update profile right now.")
			return
		} else if taken {
			h.renderEditError(w, r, http.StatusBadRequest, "This username/email is already taken.")
			return
		}
	}
	if username != me.Username {
		if taken, err := h.identifierTaken(me.ID, func() (models.User, error) { return h.Users.FindByUsername(ctx, username) }); err != nil {
			logger.Error("profile edit username check failed", "error", err)
			h.renderEditError(w, r, http.StatusInternalServerError, "Unable to update profile right now.")
			return
		} else if taken {
			h.renderEditError(w, r, http.StatusBadRequest, "This username/email is already taken.")
			return
		}
	}

	avatarURL := me.AvatarURL
	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		key := "avatars/" + uuid.NewString() + strings.ToLower(path.Ext(header.Filename))
		stored, err := h.Avatars.Save(ctx, key, file)
		if err != nil {
			logger.Error("avatar upload failed", "error", err)
			h.renderEditError(w, r, http.StatusInternalServerError, "Unable to store the avatar.")
			return
		}
		avatarURL = stored
	}

	me.Name = name
	me.Username = username
	me.Email = email
	me.Location = location
	me.AvatarURL = avatarURL
	me.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, me); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			h.renderEditError(w, r, http.StatusBadRequest, "This username/email is already taken.")
			return
		}
		logger.Error("profile update failed", "error", err, "userId", me.ID)
		h.renderEditError(w, r, http.StatusInternalServerError, "Unable to update profile right now.")
		return
	}

	http.Redirect(w, r, "/users/edit", http.StatusSeeOther)
}

func (h UserHandler) renderEditError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.Pages.Render(w, r, status, "edit_profile", page(w, r, "Edit Profile", msg, nil))
}

// identifierTaken reports whether the looked-up user is someone other than me.
func (h UserHandler) identifierTaken(myID string, find func() (models.User, error)) (bool, error) {
	found, err := find()
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return auth.AuthorizeOwner(myID, found.ID) != nil, nil
}

// GetChangePassword renders the password change form, bouncing social-only
// accounts straight away.
func (h UserHandler) GetChangePassword(w http.ResponseWriter, r *http.Request) {
	if me, ok := middleware.UserFrom(r.Context()); ok && me.SocialOnly {
		setFlash(w, "Can't change password.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.Pages.Render(w, r, http.StatusOK, "change_password", page(w, r, "Change Password", "", nil))
}

// PostChangePassword rehashes and stores a new password after verifying the
// old one. Social-only accounts are rejected outright.
func (h UserHandler) PostChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	me, ok := middleware.UserFrom(ctx)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if me.SocialOnly {
		setFlash(w, "Can't change password.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.Pages.Render(w, r, http.StatusBadRequest, "change_password",
			page(w, r, "Change Password", "Invalid form submission.", nil))
		return
	}

	oldPassword := r.PostFormValue("oldPassword")
	newPassword := r.PostFormValue("newPassword")
	confirmation := r.PostFormValue("newPasswordConfirmation")

	if err := bcrypt.CompareHashAndPassword([]byte(me.Password), []byte(oldPassword)); err != nil {
		h.Pages.Render(w, r, http.StatusBadRequest, "change_password",
			page(w, r, "Change Password", "The current password is incorrect.", nil))
		return
	}

	if newPassword != confirmation {
		h.Pages.Render(w, r, http.StatusBadRequest, "change_password",
			page(w, r, "Change Password", "The new password does not match the confirmation.", nil))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("password change failed to hash", "error", err)
		h.Pages.Render(w, r, http.StatusInternalServerError, "change_password",
			page(w, r, "Change Password", "Unable to change password right now.", nil))
		return
	}

	me.Password = string(hashed)
	me.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, me); err != nil {
		logger.Error("password change update failed", "error", err, "userId", me.ID)
		h.Pages.Render(w, r, http.StatusInternalServerError, "change_password",
			page(w, r, "Change Password", "Unable to change password right now.", nil))
		return
	}

	setFlash(w, "Password updated")
	http.Redirect(w, r, "/users/logout", http.StatusSeeOther)
}

// GithubStart redirects the browser to GitHub's authorization page, pinning a
// state nonce in a short-lived cookie.
func (h UserHandler) GithubStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusFound)
}

// GithubFinish completes the OAuth flow: the provider's primary verified
// email links to an existing account or, failing that, creates a social-only
// one. Either way a session is established for the resolved user.
func (h UserHandler) GithubFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "github-finish")
	defer span.End()
	logger := logging.FromContext(ctx)

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		logger.Warn("github finish state mismatch")
		setFlash(w, "Can't finish GitHub login.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	identity, err := h.OAuth.Identity(ctx, r.URL.Query().Get("code"))
	if err != nil {
		logger.Warn("github identity resolution failed", "error", err)
		setFlash(w, "Can't finish GitHub login.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.Users.FindByEmail(ctx, identity.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		now := h.now()
		user = models.User{
			ID:         uuid.NewString(),
			Name:       identity.Name,
			Username:   identity.Username,
			Email:      identity.Email,
			Password:   "",
			AvatarURL:  identity.AvatarURL,
			Location:   identity.Location,
			SocialOnly: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := h.Users.Create(ctx, user); err != nil {
			logger.Error("github finish failed to create user", "error", err)
			setFlash(w, "Can't finish GitHub login.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
	} else if err != nil {
		logger.Error("github finish user lookup failed", "error", err)
		setFlash(w, "Can't finish GitHub login.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.establishSession(w, r, user.ID, "/")
}

func (h UserHandler) establishSession(w http.ResponseWriter, r *http.Request, userID, target string) {
	session, err := h.Sessions.Issue(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to issue session", "error", err, "userId", userID)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, session)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
