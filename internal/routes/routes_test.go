package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/templui/docshelf/internal/app"
	"github.com/templui/docshelf/internal/config"
	"github.com/templui/docshelf/internal/db/dbtest"
	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/repository"
	"github.com/templui/docshelf/internal/storage"
)

const password = "Abc12345!"

type outbox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (o *outbox) SendToken(ctx context.Context, email string, token *model.Token) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tokens[email+"/"+string(token.Purpose)] = token.Token
	return nil
}

func (o *outbox) token(email string, purpose model.TokenPurpose) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tokens[email+"/"+string(purpose)]
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	outbox  *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppName:                  "Docshelf",
		AppEnv:                   "development",
		AppURL:                   "http://localhost:8090",
		JWTSecret:                "test-secret",
		JWTExpiry:                time.Hour,
		TokenRegistrationExpiry:  24 * time.Hour,
		TokenPasswordResetExpiry: time.Hour,
		BcryptCost:               bcrypt.MinCost,
		DownloadLinkExpiry:       15 * time.Minute,
		MaxUploadSize:            1 << 20,
	}
	database := dbtest.New(t)
	box := &outbox{tokens: map[string]string{}}

	a := app.Assemble(cfg, database, storage.NewMemoryStorage(), repository.NewTokenRepository(database), box)
	return &testServer{t: t, handler: SetupRoutes(a), outbox: box}
}

func (s *testServer) do(method, path, session string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(path, session, filename string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signUp registers, confirms and logs in, returning the session token.
func (s *testServer) signUp(email, accountName, level string) string {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"first_name":            "Ada",
		"last_name":             "Lovelace",
		"email":                 email,
		"password":              password,
		"password_confirmation": password,
		"account_name":          accountName,
		"service_level":         level,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/auth/confirm/"+s.outbox.token(email, model.TokenPurposeRegistrationConfirm), "", nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	return s.login(email, password)
}

func (s *testServer) login(email, pw string) string {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": pw})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

type accountBody struct {
	Name         string `json:"name"`
	Rate         string `json:"rate"`
	ServiceLevel struct {
		Name string `json:"name"`
	} `json:"service_level"`
	Members []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"members"`
	Documents []struct {
		Name      string `json:"name"`
		Extension string `json:"extension"`
	} `json:"documents"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/service-levels", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	levels := decode[[]struct {
		Name string `json:"name"`
	}](t, rec)
	require.Len(t, levels, 5)
	assert.Equal(t, model.ServiceLevelBronze, levels[0].Name)
	assert.Equal(t, model.ServiceLevelEnterprise, levels[4].Name)

	rec = s.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/app/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/app/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegistrationFlow(t *testing.T) {
	s := newTestServer(t)

	register := map[string]string{
		"first_name":            "Ada",
		"last_name":             "Lovelace",
		"email":                 "a@x.com",
		"password":              password,
		"password_confirmation": "other",
		"account_name":          "acme",
		"service_level":         "BRONZE",
	}
	rec := s.do(http.MethodPost, "/auth/register", "", register)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	register["password_confirmation"] = password
	rec = s.do(http.MethodPost, "/auth/register", "", register)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), password)

	rec = s.do(http.MethodPost, "/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/accounts/acme/exists", "", nil)
	assert.Equal(t, map[string]bool{"exists": true}, decode[map[string]bool](t, rec))

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": password})
	assert.Equal(t, http.StatusForbidden, rec.Code, "not confirmed yet")

	token := s.outbox.token("a@x.com", model.TokenPurposeRegistrationConfirm)
	rec = s.do(http.MethodGet, "/auth/confirm/"+token, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/auth/confirm/"+token, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	session := s.login("a@x.com", password)

	rec = s.do(http.MethodGet, "/app/me", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "a@x.com", me["email"])
	assert.Equal(t, true, me["confirmed"])

	rec = s.do(http.MethodGet, "/app/accounts/acme", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	account := decode[accountBody](t, rec)
	assert.Equal(t, model.ServiceLevelBronze, account.ServiceLevel.Name)
	assert.Equal(t, "0", account.Rate)
	assert.Empty(t, account.Members)
}

func TestMembership(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp("alice@x.com", "acme", "bronze")
	bob := s.signUp("bob@x.com", "bobs", "bronze")
	carol := s.signUp("carol@x.com", "carols", "bronze")

	rec := s.do(http.MethodGet, "/app/accounts/acme", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "not a member yet")

	rec = s.do(http.MethodPost, "/app/accounts/acme/members", alice, map[string]string{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/app/accounts/acme/members", alice, map[string]string{"email": "bob@x.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	account := decode[accountBody](t, rec)
	require.Len(t, account.Members, 1)
	bobID := account.Members[0].ID

	rec = s.do(http.MethodPost, "/app/accounts/acme/members", alice, map[string]string{"email": "bob@x.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/app/accounts/acme/members", alice, map[string]string{"email": "carol@x.com"})
	assert.Equal(t, http.StatusConflict, rec.Code, "bronze allows one member")

	rec = s.do(http.MethodGet, "/app/accounts/acme", bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/app/accounts/acme", carol, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/app/accounts", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	names := []string{}
	for _, a := range decode[[]accountBody](t, rec) {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"acme", "bobs"}, names)

	rec = s.do(http.MethodDelete, "/app/accounts/acme/members/"+bobID, bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "cannot remove self")

	rec = s.do(http.MethodPut, "/app/accounts/acme/service-level", alice, map[string]string{"service_level": "platinum"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/app/accounts/acme/service-level", alice, map[string]string{"service_level": "gold"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ServiceLevelGold, decode[accountBody](t, rec).ServiceLevel.Name)

	rec = s.do(http.MethodDelete, "/app/accounts/acme/members/"+bobID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[accountBody](t, rec).Members)

	rec = s.do(http.MethodGet, "/app/accounts/acme", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocuments(t *testing.T) {
	s := newTestServer(t)
	session := s.signUp("a@x.com", "acme", "gold")

	rec := s.upload("/app/accounts/acme/documents", session, "notes.txt", []byte("hello docshelf"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[accountBody](t, rec)
	require.Len(t, account.Documents, 1)
	assert.Equal(t, "notes", account.Documents[0].Name)
	assert.Equal(t, "txt", account.Documents[0].Extension)

	rec = s.upload("/app/accounts/acme/documents", session, "notes.md", []byte("again"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.upload("/app/accounts/acme/documents", session, "empty.txt", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/app/accounts/acme/documents/notes", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello docshelf", rec.Body.String())
	assert.Equal(t, "notes.txt", attachmentName(t, rec))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = s.do(http.MethodGet, "/app/accounts/acme/documents/notes/link", session, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = s.do(http.MethodDelete, "/app/accounts/acme/documents/notes", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[accountBody](t, rec).Documents)

	rec = s.do(http.MethodGet, "/app/accounts/acme/documents/notes", session, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentDownload_EncodesFilename(t *testing.T) {
	s := newTestServer(t)
	session := s.signUp("a@x.com", "acme", "gold")

	rec := s.upload("/app/accounts/acme/documents", session, "résumé 2024.txt", []byte("cv"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/app/accounts/acme/documents/r%C3%A9sum%C3%A9%202024", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "résumé 2024.txt", attachmentName(t, rec))
}

// attachmentName parses the download's Content-Disposition header.
func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	return params["filename"]
}

func TestPasswordFlows(t *testing.T) {
	s := newTestServer(t)
	session := s.signUp("a@x.com", "acme", "bronze")

	rec := s.do(http.MethodPost, "/app/settings/password", session, map[string]string{
		"current_password":          "wrong",
		"new_password":              "Xyz98765#",
		"new_password_confirmation": "Xyz98765#",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/app/settings/password", session, map[string]string{
		"current_password":          password,
		"new_password":              "Xyz98765#",
		"new_password_confirmation": "Xyz98765#",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	s.login("a@x.com", "Xyz98765#")

	rec = s.do(http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = s.do(http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	token := s.outbox.token("a@x.com", model.TokenPurposePasswordReset)
	require.NotEmpty(t, token)

	rec = s.do(http.MethodGet, "/auth/reset-password/"+token, "", nil)
	assert.Equal(t, map[string]bool{"valid": true}, decode[map[string]bool](t, rec))

	reset := map[string]string{
		"email":                 "a@x.com",
		"password":              password,
		"password_confirmation": password,
		"token":                 token,
	}
	rec = s.do(http.MethodPost, "/auth/reset-password", "", reset)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	s.login("a@x.com", password)

	rec = s.do(http.MethodPost, "/auth/reset-password", "", reset)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/auth/reset-password/"+token, "", nil)
	assert.Equal(t, map[string]bool{"valid": false}, decode[map[string]bool](t, rec))
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
}
