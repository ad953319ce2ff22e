package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/middleware"
	"github.com/AnshRaj112/vcard-backend/internal/models"
	"github.com/AnshRaj112/vcard-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAuthAPI struct {
	mock.Mock
}

func (m *mockAuthAPI) Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*services.RegisterResult)
	return res, args.Error(1)
}

func (m *mockAuthAPI) ConfirmEmail(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthAPI) ResendVerification(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthAPI) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthAPI) Login(ctx context.Context, email, password string) (*services.Session, error) {
	args := m.Called(ctx, email, password)
	sess, _ := args.Get(0).(*services.Session)
	return sess, args.Error(1)
}

func (m *mockAuthAPI) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuthAPI) LogoutEverywhere(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockAuthAPI) SendTestEmail(ctx context.Context, to string) error {
	return m.Called(ctx, to).Error(0)
}

type mockCardAPI struct {
	mock.Mock
}

func (m *mockCardAPI) Create(ctx context.Context, caller *services.Session, in models.CardInput, image *services.CardImage) (*models.Card, error) {
	args := m.Called(ctx, caller, in, image)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *mockCardAPI) List(ctx context.Context, caller *services.Session) ([]models.Card, error) {
	args := m.Called(ctx, caller)
	cards, _ := args.Get(0).([]models.Card)
	return cards, args.Error(1)
}

func (m *mockCardAPI) Get(ctx context.Context, caller *services.Session, id string) (*models.Card, error) {
	args := m.Called(ctx, caller, id)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *mockCardAPI) GetForEdit(ctx context.Context, caller *services.Session, id string) (*models.Card, error) {
	args := m.Called(ctx, caller, id)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *mockCardAPI) Update(ctx context.Context, caller *services.Session, id string, patch models.CardPatch, image *services.CardImage) (*models.Card, error) {
	args := m.Called(ctx, caller, id, patch, image)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *mockCardAPI) Delete(ctx context.Context, caller *services.Session, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

var testSession = &services.Session{Token: "tok", UserID: "user-1", Username: "alice", CreatedAt: time.Unix(0, 0).UTC()}

// withSession injects testSession the way LoadSession would.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.SessionToken(r) == testSession.Token {
			r = r.WithContext(middleware.WithSession(r.Context(), testSession))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestRouter(t *testing.T) (*chi.Mux, *mockAuthAPI, *mockCardAPI) {
	t.Helper()
	auth := &mockAuthAPI{}
	cards := &mockCardAPI{}
	ah := NewAuthHandler(auth, time.Hour, true, zap.NewNop())
	ch := NewCardHandler(cards, zap.NewNop())

	r := chi.NewRouter()
	r.Use(withSession)
	r.Post("/register", ah.Register)
	r.Get("/confirm/{token}", ah.ConfirmEmail)
	r.Post("/resend", ah.ResendVerification)
	r.Post("/check-username", ah.CheckUsernameAvailability)
	r.Post("/login", ah.Login)
	r.Post("/logout", ah.Logout)
	r.Post("/logout-all", ah.LogoutAll)
	r.Get("/me", ah.GetMe)
	r.Post("/dev/test-email", ah.SendTestEmail)
	r.Get("/cards", ch.ListCards)
	r.Post("/cards", ch.CreateCard)
	r.Get("/cards/{id}", ch.GetCard)
	r.Get("/cards/{id}/edit", ch.GetCardForEdit)
	r.Put("/cards/{id}", ch.UpdateCard)
	r.Delete("/cards/{id}", ch.DeleteCard)

	t.Cleanup(func() {
		auth.AssertExpectations(t)
		cards.AssertExpectations(t)
	})
	return r, auth, cards
}

func doJSON(r http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: testSession.Token})
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterHandler(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	in := services.RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw1", ConfirmPassword: "pw1"}
	auth.On("Register", mock.Anything, in).
		Return(&services.RegisterResult{User: &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "secret"}, VerificationSent: true}, nil)

	rec := doJSON(r, http.MethodPost, "/register",
		`{"username":"alice","email":"a@x.com","password":"pw1","confirm_password":"pw1"}`, false)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["verification_sent"])
}

func TestRegisterHandler_MailFailure(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("Register", mock.Anything, mock.Anything).
		Return(&services.RegisterResult{User: &models.User{Email: "a@x.com"}, VerificationSent: false}, nil)

	rec := doJSON(r, http.MethodPost, "/register", `{"username":"a","email":"a@x.com","password":"p","confirm_password":"p"}`, false)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["verification_sent"])
}

func TestRegisterHandler_Errors(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("Register", mock.Anything, mock.Anything).Return(nil, apperr.DuplicateEmail()).Once()

	rec := doJSON(r, http.MethodPost, "/register", `{"username":"a","email":"a@x.com","password":"p","confirm_password":"p"}`, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already exists!", decodeBody(t, rec)["message"])

	rec = doJSON(r, http.MethodPost, "/register", `{"username":"a","role":"admin"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "role")

	rec = doJSON(r, http.MethodPost, "/register", `not json`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(r, http.MethodPost, "/register", ``, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmEmailHandler(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("ConfirmEmail", mock.Anything, "good").Return(false, nil)
	auth.On("ConfirmEmail", mock.Anything, "again").Return(true, nil)
	auth.On("ConfirmEmail", mock.Anything, "old").Return(false, apperr.TokenExpired())
	auth.On("ConfirmEmail", mock.Anything, "bad").Return(false, apperr.TokenInvalid())
	auth.On("ConfirmEmail", mock.Anything, "gone").Return(false, apperr.NotFound("User not found. Please register."))

	rec := doJSON(r, http.MethodGet, "/confirm/good", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified! You can now log in.", decodeBody(t, rec)["message"])

	rec = doJSON(r, http.MethodGet, "/confirm/again", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Account already verified. Please log in.", decodeBody(t, rec)["message"])

	rec = doJSON(r, http.MethodGet, "/confirm/old", "", false)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["resend_needed"])

	rec = doJSON(r, http.MethodGet, "/confirm/bad", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["resend_needed"])

	rec = doJSON(r, http.MethodGet, "/confirm/gone", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResendHandler(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("ResendVerification", mock.Anything, "a@x.com").Return(false, nil)
	auth.On("ResendVerification", mock.Anything, "b@x.com").Return(true, nil)
	auth.On("ResendVerification", mock.Anything, "c@x.com").
		Return(false, apperr.Dependency("Failed to resend verification email. Try again later.", assert.AnError))

	rec := doJSON(r, http.MethodPost, "/resend", `{"email":"a@x.com"}`, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Verification email resent. Please check your inbox.", decodeBody(t, rec)["message"])

	rec = doJSON(r, http.MethodPost, "/resend", `{"email":"b@x.com"}`, false)
	assert.Equal(t, "Account already verified. Please log in.", decodeBody(t, rec)["message"])

	rec = doJSON(r, http.MethodPost, "/resend", `{"email":"c@x.com"}`, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestCheckUsernameHandler(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("UsernameAvailable", mock.Anything, "alice").Return(false, nil)

	rec := doJSON(r, http.MethodPost, "/check-username", `{"username":"alice"}`, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["available"])
	assert.Equal(t, "Username is already taken", body["message"])
}

func TestLoginHandler(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("Login", mock.Anything, "a@x.com", "pw1").Return(testSession, nil)
	auth.On("Login", mock.Anything, "a@x.com", "bad").Return(nil, apperr.InvalidCredentials())
	auth.On("Login", mock.Anything, "new@x.com", "pw1").Return(nil, apperr.NotVerified())

	rec := doJSON(r, http.MethodPost, "/login", `{"email":"a@x.com","password":"pw1"}`, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "tok", body["token"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	rec = doJSON(r, http.MethodPost, "/login", `{"email":"a@x.com","password":"bad"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = doJSON(r, http.MethodPost, "/login", `{"email":"new@x.com","password":"pw1"}`, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogoutHandlers(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("Logout", mock.Anything, "tok").Return(nil)
	auth.On("Logout", mock.Anything, "").Return(nil)
	auth.On("LogoutEverywhere", mock.Anything, "user-1").Return(2, nil)

	rec := doJSON(r, http.MethodPost, "/logout", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)

	rec = doJSON(r, http.MethodPost, "/logout", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPost, "/logout-all", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["sessions_closed"])
}

func TestLogoutHandler_StoreDownStillClearsCookie(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("Logout", mock.Anything, "tok").Return(apperr.Dependency("Session store unavailable", assert.AnError))

	rec := doJSON(r, http.MethodPost, "/logout", "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.False(t, decodeBody(t, rec)["success"].(bool))
}

func TestGetMeHandler(t *testing.T) {
	r, _, _ := newTestRouter(t)
	rec := doJSON(r, http.MethodGet, "/me", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody(t, rec)["session"].(map[string]any)
	assert.Equal(t, "user-1", session["user_id"])
	assert.Equal(t, "alice", session["username"])
}

func TestSendTestEmailHandler(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	auth.On("SendTestEmail", mock.Anything, "dev@x.com").Return(nil)

	rec := doJSON(r, http.MethodPost, "/dev/test-email?to=dev@x.com", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListCardsHandler(t *testing.T) {
	r, _, cards := newTestRouter(t)
	cards.On("List", mock.Anything, testSession).Return([]models.Card{{FullName: "A"}, {FullName: "B"}}, nil)

	rec := doJSON(r, http.MethodGet, "/cards", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["count"])
}

func TestCreateCardHandler_JSON(t *testing.T) {
	r, _, cards := newTestRouter(t)
	in := models.CardInput{FullName: "Alice", Email: "a@x.com", IsPublic: true}
	cards.On("Create", mock.Anything, testSession, in, (*services.CardImage)(nil)).
		Return(&models.Card{FullName: "Alice", OwnerID: "user-1"}, nil)

	rec := doJSON(r, http.MethodPost, "/cards", `{"full_name":"Alice","email":"a@x.com","is_public":true}`, true)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(r, http.MethodPost, "/cards", `{"full_name":"Alice","user_id":"someone-else"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCardHandler_Multipart(t *testing.T) {
	r, _, cards := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("full_name", "Alice"))
	require.NoError(t, mw.WriteField("is_public", "on"))
	fw, err := mw.CreateFormFile("profile_image", "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	cards.On("Create", mock.Anything, testSession,
		models.CardInput{FullName: "Alice", IsPublic: true},
		&services.CardImage{Filename: "me.png", Data: []byte("png-bytes")}).
		Return(&models.Card{FullName: "Alice"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/cards", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGetCardHandler(t *testing.T) {
	r, _, cards := newTestRouter(t)
	cards.On("Get", mock.Anything, (*services.Session)(nil), "abc").Return(&models.Card{FullName: "Pub", ViewCount: 4}, nil)
	cards.On("Get", mock.Anything, (*services.Session)(nil), "hidden").Return(nil, apperr.NotFound("Card not found"))
	cards.On("GetForEdit", mock.Anything, testSession, "abc").Return(&models.Card{FullName: "Pub"}, nil)

	rec := doJSON(r, http.MethodGet, "/cards/abc", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	card := decodeBody(t, rec)["card"].(map[string]any)
	assert.EqualValues(t, 4, card["view_count"])

	rec = doJSON(r, http.MethodGet, "/cards/hidden", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(r, http.MethodGet, "/cards/abc/edit", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateCardHandler(t *testing.T) {
	r, _, cards := newTestRouter(t)
	name := "New"
	cards.On("Update", mock.Anything, testSession, "abc", models.CardPatch{FullName: &name}, (*services.CardImage)(nil)).
		Return(&models.Card{FullName: "New"}, nil)
	cards.On("Update", mock.Anything, testSession, "theirs", mock.Anything, (*services.CardImage)(nil)).
		Return(nil, apperr.Forbidden("Card not found or not authorized"))

	rec := doJSON(r, http.MethodPut, "/cards/abc", `{"full_name":"New"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodPut, "/cards/theirs", `{"full_name":"Hacked"}`, true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(r, http.MethodPut, "/cards/abc", `{"view_count":1000}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCardHandler_RejectsProfileImageURLInJSON(t *testing.T) {
	r, _, cards := newTestRouter(t)

	rec := doJSON(r, http.MethodPut, "/cards/abc", `{"profile_image_url":"https://evil.example.com/x.png"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.False(t, body["success"].(bool))
	assert.Contains(t, body["message"], "profile_image_url")

	rec = doJSON(r, http.MethodPut, "/cards/abc", `{"full_name":"New","profile_image_url":"https://evil.example.com/x.png"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	cards.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCardHandler_MultipartOnlySetsPresentFields(t *testing.T) {
	r, _, cards := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("bio", "Hello"))
	require.NoError(t, mw.WriteField("is_public", "0"))
	require.NoError(t, mw.Close())

	bio := "Hello"
	public := false
	cards.On("Update", mock.Anything, testSession, "abc",
		models.CardPatch{Bio: &bio, IsPublic: &public}, (*services.CardImage)(nil)).
		Return(&models.Card{Bio: "Hello"}, nil)

	req := httptest.NewRequest(http.MethodPut, "/cards/abc", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteCardHandler(t *testing.T) {
	r, _, cards := newTestRouter(t)
	cards.On("Delete", mock.Anything, testSession, "abc").Return(nil)
	cards.On("Delete", mock.Anything, testSession, "theirs").Return(apperr.Forbidden("Card not found or not authorized"))

	rec := doJSON(r, http.MethodDelete, "/cards/abc", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodDelete, "/cards/theirs", "", true)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFormBool(t *testing.T) {
	for _, v := range []string{"true", "on", "1", " TRUE "} {
		assert.True(t, formBool(v), v)
	}
	for _, v := range []string{"", "false", "off", "0", "yes"} {
		assert.False(t, formBool(v), v)
	}
}
