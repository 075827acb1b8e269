package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/config"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authgate/internal/server/services"
	"golang.org/x/crypto/bcrypt"
)

type recordingMailer struct {
	email string
	token string
}

func (m *recordingMailer) SendConfirmationEmail(ctx context.Context, email, token string) error {
	m.email = email
	m.token = token
	return nil
}

type serverEnv struct {
	handler http.Handler
	mailer  *recordingMailer
	mock    sqlmock.Sqlmock
	db      *sql.DB
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	rm := repomanager.NewInMemoryRepositoryManager(bcrypt.MinCost, 24*time.Hour, nil)
	mailer := &recordingMailer{}
	auth := services.NewAuthService(db, rm, mailer, logger, cfg)

	return &serverEnv{
		handler: NewServer(cfg, logger, auth).Handler(),
		mailer:  mailer,
		mock:    mock,
		db:      db,
	}
}

func (e *serverEnv) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *serverEnv) register(t *testing.T, email, username, password string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/register", "",
		`{"email":"`+email+`","username":"`+username+`","password":"`+password+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: got %d, body %s", w.Code, w.Body.String())
	}
}

func (e *serverEnv) login(t *testing.T, username, password string) tokenPairResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/login", "",
		`{"username":"`+username+`","password":"`+password+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", w.Code, w.Body.String())
	}
	var pair tokenPairResponse
	if err := json.Unmarshal(w.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decoding token pair: %v", err)
	}
	return pair
}

func TestRegister_Responses(t *testing.T) {
	env := newServerEnv(t)

	env.register(t, "jane@mail.com", "jane", "pw1")

	w := env.do(t, http.MethodPost, "/register", "", `{"username":"jane","password":"other"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate username: got %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/register", "", `{"username":"nopassword"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: got %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/register", "", `not-json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestLogin_Responses(t *testing.T) {
	env := newServerEnv(t)
	env.register(t, "jane@mail.com", "jane", "pw1")

	pair := env.login(t, "jane", "pw1")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token pair: %+v", pair)
	}

	w := env.do(t, http.MethodPost, "/login", "", `{"username":"jane","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/login", "", `{"username":"ghost","password":"pw1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutes_RequireAccessToken(t *testing.T) {
	env := newServerEnv(t)
	env.register(t, "jane@mail.com", "jane", "pw1")
	pair := env.login(t, "jane", "pw1")

	w := env.do(t, http.MethodGet, "/me", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/me", "garbage", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d", w.Code)
	}

	// refresh tokens do not open protected routes
	w = env.do(t, http.MethodGet, "/me", pair.RefreshToken, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token on protected route: got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/me", pair.AccessToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("access token: got %d, body %s", w.Code, w.Body.String())
	}

	var user userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("decoding user: %v", err)
	}
	if user.Username != "jane" || user.ID == "" {
		t.Fatalf("unexpected user response: %+v", user)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", w.Body.String())
	}
}

func TestRefresh_Endpoint(t *testing.T) {
	env := newServerEnv(t)
	env.register(t, "jane@mail.com", "jane", "pw1")
	pair := env.login(t, "jane", "pw1")

	w := env.do(t, http.MethodPost, "/refresh", "", `{"refreshToken":"`+pair.RefreshToken+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: got %d, body %s", w.Code, w.Body.String())
	}
	var next tokenPairResponse
	if err := json.Unmarshal(w.Body.Bytes(), &next); err != nil {
		t.Fatalf("decoding token pair: %v", err)
	}
	if next.AccessToken == "" {
		t.Fatalf("empty access token after refresh")
	}

	// access tokens are the wrong type here
	w = env.do(t, http.MethodPost, "/refresh", "", `{"refreshToken":"`+pair.AccessToken+`"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("access token on refresh: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestValidate_Endpoint(t *testing.T) {
	env := newServerEnv(t)
	env.register(t, "jane@mail.com", "jane", "pw1")
	pair := env.login(t, "jane", "pw1")

	w := env.do(t, http.MethodGet, "/validate", pair.AccessToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("validate: got %d, body %s", w.Code, w.Body.String())
	}
	var resp validateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Valid {
		t.Fatalf("expected valid=true: %+v", resp)
	}

	w = env.do(t, http.MethodGet, "/validate", pair.RefreshToken, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token on validate: got %d", w.Code)
	}
}

func TestChangePassword_Endpoint(t *testing.T) {
	env := newServerEnv(t)
	env.register(t, "jane@mail.com", "jane", "oldpw")
	pair := env.login(t, "jane", "oldpw")

	w := env.do(t, http.MethodPatch, "/change-password", pair.AccessToken, `{"newPassword":"newpw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("change password: got %d, body %s", w.Code, w.Body.String())
	}

	env.login(t, "jane", "newpw")
	w = env.do(t, http.MethodPost, "/login", "", `{"username":"jane","password":"oldpw"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password after change: got %d", w.Code)
	}
}

func TestUpdateAndDeleteMe(t *testing.T) {
	env := newServerEnv(t)
	env.register(t, "jane@mail.com", "jane", "pw1")
	pair := env.login(t, "jane", "pw1")

	w := env.do(t, http.MethodPut, "/me", pair.AccessToken, `{"email":"new@mail.com","username":"jane2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update me: got %d, body %s", w.Code, w.Body.String())
	}
	var user userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("decoding user: %v", err)
	}
	if user.Username != "jane2" || user.Email != "new@mail.com" {
		t.Fatalf("unexpected user after update: %+v", user)
	}

	w = env.do(t, http.MethodDelete, "/me", pair.AccessToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete me: got %d, body %s", w.Code, w.Body.String())
	}

	// the token is still well-formed but its subject is gone
	w = env.do(t, http.MethodGet, "/me", pair.AccessToken, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("me after delete: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newServerEnv(t)
	env.register(t, "jane@mail.com", "jane", "oldpw")

	w := env.do(t, http.MethodPost, "/request-change-password", "",
		`{"email":"jane@mail.com","newPassword":"resetpw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("request change password: got %d, body %s", w.Code, w.Body.String())
	}
	if env.mailer.token == "" {
		t.Fatalf("no confirmation token mailed")
	}

	// duplicate active request is rejected
	w = env.do(t, http.MethodPost, "/request-change-password", "",
		`{"email":"jane@mail.com","newPassword":"other"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate request: got %d, body %s", w.Code, w.Body.String())
	}

	// wrong token leaves the request confirmable
	w = env.do(t, http.MethodGet, "/confirm-change-password/wrong?email=jane@mail.com", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong token: got %d, body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/confirm-change-password/"+env.mailer.token, "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing email: got %d, body %s", w.Code, w.Body.String())
	}

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	w = env.do(t, http.MethodGet, "/confirm-change-password/"+env.mailer.token+"?email=jane@mail.com", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: got %d, body %s", w.Code, w.Body.String())
	}

	env.login(t, "jane", "resetpw")

	// the request is consumed
	w = env.do(t, http.MethodGet, "/confirm-change-password/"+env.mailer.token+"?email=jane@mail.com", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second confirm: got %d, body %s", w.Code, w.Body.String())
	}

	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRequestChangePassword_UnknownEmail(t *testing.T) {
	env := newServerEnv(t)

	w := env.do(t, http.MethodPost, "/request-change-password", "",
		`{"email":"ghost@mail.com","newPassword":"pw"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown email: got %d, body %s", w.Code, w.Body.String())
	}
}
