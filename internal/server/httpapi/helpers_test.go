package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lms/internal/common"
	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/auth"
	"github.com/dmitrijs2005/lms/internal/server/models"
	"github.com/dmitrijs2005/lms/internal/server/services"
	"github.com/stretchr/testify/require"
)

var secret = []byte("httpapi-test-secret")

type fakeUsers struct {
	issuer *auth.Issuer

	mu       sync.Mutex
	accounts map[string]string
	changed  []string
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	f.mu.Lock()
	pw, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok || pw != password {
		return nil, common.ErrorUnauthorized
	}
	return f.issuer.IssuePair(ctx, email)
}

func (f *fakeUsers) Refresh(ctx context.Context, token string) (*auth.TokenPair, error) {
	if token != "good-refresh" {
		return nil, common.ErrorUnauthorized
	}
	return f.issuer.IssuePair(ctx, "admin@lms.io")
}

func (f *fakeUsers) CreateUser(_ context.Context, email, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if email == "" || password == "" {
		return nil, common.ErrorValidation
	}
	if _, ok := f.accounts[email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.accounts[email] = password
	return &models.User{ID: int64(len(f.accounts)), Email: email}, nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, email, current, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accounts[email] != current {
		return common.ErrorUnauthorized
	}
	f.accounts[email] = next
	f.changed = append(f.changed, email)
	return nil
}

func (f *fakeUsers) ListUsers(context.Context) ([]*models.User, error) {
	return []*models.User{{ID: 1, Email: "admin@lms.io"}}, nil
}

type fakeContents struct {
	mu       sync.Mutex
	items    map[int64]*models.Content
	lastIn   services.ContentInput
	bodies   map[string]string
	lastUser string
	limit    int
	failWith error
}

func newFakeContents() *fakeContents {
	return &fakeContents{items: map[int64]*models.Content{}, bodies: map[string]string{}}
}

func (f *fakeContents) capture(in services.ContentInput) {
	f.lastIn = in
	for _, m := range in.Media {
		b, _ := io.ReadAll(m.Body)
		f.bodies[m.Kind] = string(b)
	}
}

func (f *fakeContents) Create(_ context.Context, by string, in services.ContentInput) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.capture(in)
	f.lastUser = by
	c := &models.Content{ID: int64(len(f.items) + 1), Title: in.Title, Topic: in.Topic, CreatedBy: by}
	f.items[c.ID] = c
	return c, nil
}

func (f *fakeContents) Get(_ context.Context, id int64) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeContents) List(context.Context) ([]*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Content{}
	for i := int64(len(f.items)); i > 0; i-- {
		if c, ok := f.items[i]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContents) ListPublic(ctx context.Context, limit int) ([]*models.Content, error) {
	f.limit = limit
	return f.List(ctx)
}

func (f *fakeContents) Update(_ context.Context, id int64, in services.ContentInput) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	f.capture(in)
	c.Title = in.Title
	return c, nil
}

func (f *fakeContents) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeContents) MediaURL(_ context.Context, key string) (string, error) {
	if key == "missing" {
		return "", common.ErrorValidation
	}
	return "http://minio.local/lms-media/" + key + "?X-Amz-Signature=abc", nil
}

type fakeAnalytics struct{}

func (fakeAnalytics) Overview(context.Context) (*services.Overview, error) {
	return &services.Overview{TotalContent: 4, TotalUsers: 2}, nil
}

type apiFixture struct {
	handler  http.Handler
	issuer   *auth.Issuer
	users    *fakeUsers
	contents *fakeContents
	token    string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	issuer, err := auth.NewIssuer(secret, logging.Nop())
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(secret, logging.Nop())
	require.NoError(t, err)

	users := &fakeUsers{issuer: issuer, accounts: map[string]string{"admin@lms.io": "s3cret"}}
	contents := newFakeContents()

	h := NewRouter(Deps{
		Users:         users,
		Contents:      contents,
		Analytics:     fakeAnalytics{},
		Verifier:      verifier,
		Logger:        logging.Nop(),
		MaxUploadSize: 1 << 20,
		AllowedOrigin: "http://lms.local",
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# metrics")
		}),
	})

	token, err := issuer.IssueAccess(context.Background(), "admin@lms.io", time.Hour)
	require.NoError(t, err)

	return &apiFixture{handler: h, issuer: issuer, users: users, contents: contents, token: token}
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+f.token)
	return req
}

type formFile struct {
	field, name, body string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}
