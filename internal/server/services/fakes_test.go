package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/lms/internal/common"
	"github.com/dmitrijs2005/lms/internal/dbx"
	"github.com/dmitrijs2005/lms/internal/server/models"
	"github.com/dmitrijs2005/lms/internal/server/repositories/contents"
	"github.com/dmitrijs2005/lms/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byMail map[string]*models.User
	nextID int64

	getErr   error
	countErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byMail: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byMail[u.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	f.byMail[u.Email] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byMail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, email, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byMail[email]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) List(context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.User, 0, len(f.byMail))
	for _, u := range f.byMail {
		out = append(out, &models.User{ID: u.ID, Email: u.Email})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsersRepo) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byMail)), f.countErr
}

// --- contents ---

type fakeContentsRepo struct {
	mu     sync.Mutex
	rows   map[int64]*models.Content
	nextID int64

	createErr error
	updateErr error
}

func newFakeContentsRepo() *fakeContentsRepo {
	return &fakeContentsRepo{rows: map[int64]*models.Content{}}
}

func (f *fakeContentsRepo) Create(_ context.Context, c *models.Content) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.rows[c.ID] = &cp
	return c, nil
}

func (f *fakeContentsRepo) Get(_ context.Context, id int64) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContentsRepo) list() []*models.Content {
	out := make([]*models.Content, 0, len(f.rows))
	for _, c := range f.rows {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeContentsRepo) List(context.Context) ([]*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(), nil
}

func (f *fakeContentsRepo) ListPublic(_ context.Context, limit int) ([]*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.list()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContentsRepo) Update(_ context.Context, c *models.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rows[c.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeContentsRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeContentsRepo) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

// --- manager ---

type fakeRepoMgr struct {
	users    *fakeUsersRepo
	contents *fakeContentsRepo
}

func newFakeRepoMgr() *fakeRepoMgr {
	return &fakeRepoMgr{users: newFakeUsersRepo(), contents: newFakeContentsRepo()}
}

func (m *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoMgr) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeRepoMgr) Contents(dbx.DBTX) contents.Repository        { return m.contents }

// --- media store ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int

	putErr    error
	failAfter int // Put fails once this many objects were stored; 0 disables
	deleteErr error
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(_ context.Context, kind, filename, _ string, body io.Reader, _ int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil || (s.failAfter > 0 && len(s.objects) >= s.failAfter) {
		return "", errors.New("store unavailable")
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.n++
	key := fmt.Sprintf("contents/%s/%d-%s", kind, s.n, filename)
	s.objects[key] = b
	return key, nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string) (string, error) {
	return "http://minio.local/" + key + "?sig=1", nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func upload(kind, name, body string) MediaUpload {
	return MediaUpload{Kind: kind, Filename: name, Body: bytes.NewBufferString(body), Size: int64(len(body))}
}
