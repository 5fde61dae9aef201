package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"file-manager-api/internal/domain/file"
	"file-manager-api/internal/domain/user"
	"file-manager-api/internal/infrastructure/mq"
)

var errTxClosed = errors.New("tx is closed")

func nameKey(owner, name string) string { return owner + "\x00" + name }

func live(s file.Status) bool {
	return s == file.StatusPending || s == file.StatusCompleted || s == file.StatusDeleting
}

// memRepo keeps committed rows and emulates the partial unique index on
// live (owner, name) pairs across open transactions.
type memRepo struct {
	mu       sync.Mutex
	rows     map[file.ID]*file.File
	reserved map[string]*memTx

	beginErr    error
	commitErr   error
	rollbackErr error
	updateErr   error

	restored int
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows:     map[file.ID]*file.File{},
		reserved: map[string]*memTx{},
	}
}

func clone(f *file.File) *file.File {
	c := *f
	return &c
}

func (r *memRepo) nameTaken(owner, name string, self *memTx) bool {
	for _, f := range r.rows {
		if f.OwnerID == owner && f.Name == name && live(f.Status) {
			if self != nil && self.removed[f.ID] {
				continue
			}
			return true
		}
	}
	holder, ok := r.reserved[nameKey(owner, name)]
	return ok && holder != self
}

func (r *memRepo) Begin(context.Context) (file.Tx, error) {
	if r.beginErr != nil {
		return nil, r.beginErr
	}
	return &memTx{
		repo:    r,
		created: map[file.ID]*file.File{},
		updated: map[file.ID]*file.File{},
		removed: map[file.ID]bool{},
	}, nil
}

func (r *memRepo) FetchFile(_ context.Context, id file.ID, ownerID string) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok || f.OwnerID != ownerID {
		return nil, nil
	}
	return clone(f), nil
}

func (r *memRepo) FetchFileByStatus(ctx context.Context, id file.ID, ownerID string, status file.Status) (*file.File, error) {
	f, err := r.FetchFile(ctx, id, ownerID)
	if err != nil || f == nil || f.Status != status {
		return nil, err
	}
	return f, nil
}

func (r *memRepo) FetchFiles(_ context.Context, ownerID string) (file.Files, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out file.Files
	for _, f := range r.rows {
		if f.OwnerID == ownerID {
			out = append(out, clone(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (r *memRepo) FetchFileByName(_ context.Context, ownerID, name string, status file.Status) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if f.OwnerID == ownerID && f.Name == name && f.Status == status {
			return clone(f), nil
		}
	}
	return nil, nil
}

func (r *memRepo) SumSizeMB(_ context.Context, ownerID string, status file.Status) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, f := range r.rows {
		if f.OwnerID == ownerID && f.Status == status {
			sum += f.SizeMB
		}
	}
	return sum, nil
}

func (r *memRepo) CreateFile(_ context.Context, f *file.File) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[f.ID]; ok {
		return nil, errors.New("duplicate primary key")
	}
	if live(f.Status) && r.nameTaken(f.OwnerID, f.Name, nil) {
		return nil, file.ErrDuplicateName
	}
	r.rows[f.ID] = clone(f)
	return clone(f), nil
}

func (r *memRepo) RestoreFile(_ context.Context, f *file.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := clone(f)
	c.Status = file.StatusCompleted
	c.ErrorMessage = nil
	r.rows[f.ID] = c
	r.restored++
	return nil
}

func (r *memRepo) MarkFailed(_ context.Context, id file.ID, ownerID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok || f.OwnerID != ownerID {
		return errors.New("no row")
	}
	f.Status = file.StatusFailed
	f.ErrorMessage = &message
	return nil
}

func (r *memRepo) byStatus(status file.Status) file.Files {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out file.Files
	for _, f := range r.rows {
		if f.Status == status {
			out = append(out, clone(f))
		}
	}
	return out
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memTx struct {
	repo    *memRepo
	created map[file.ID]*file.File
	updated map[file.ID]*file.File
	removed map[file.ID]bool
	closed  bool
}

func (t *memTx) CreateFile(_ context.Context, f *file.File) (*file.File, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.closed {
		return nil, errTxClosed
	}
	if t.repo.nameTaken(f.OwnerID, f.Name, t) {
		return nil, file.ErrDuplicateName
	}
	t.repo.reserved[nameKey(f.OwnerID, f.Name)] = t
	t.created[f.ID] = clone(f)
	return clone(f), nil
}

func (t *memTx) lookup(id file.ID, ownerID string) *file.File {
	if t.removed[id] {
		return nil
	}
	if f, ok := t.created[id]; ok {
		return f
	}
	if f, ok := t.updated[id]; ok {
		return f
	}
	if f, ok := t.repo.rows[id]; ok && f.OwnerID == ownerID {
		return clone(f)
	}
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, id file.ID, ownerID string, status file.Status) (*file.File, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.closed {
		return nil, errTxClosed
	}
	if t.repo.updateErr != nil {
		return nil, t.repo.updateErr
	}
	f := t.lookup(id, ownerID)
	if f == nil || f.OwnerID != ownerID || !f.Status.CanTransition(status) {
		return nil, nil
	}
	f.Status = status
	if _, ok := t.created[id]; !ok {
		t.updated[id] = f
	}
	return clone(f), nil
}

func (t *memTx) RemoveFile(_ context.Context, id file.ID, ownerID string) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.closed {
		return errTxClosed
	}
	if t.lookup(id, ownerID) != nil {
		t.removed[id] = true
	}
	return nil
}

func (t *memTx) release() {
	for k, holder := range t.repo.reserved {
		if holder == t {
			delete(t.repo.reserved, k)
		}
	}
	t.closed = true
}

func (t *memTx) Commit(context.Context) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.closed {
		return errTxClosed
	}
	if t.repo.commitErr != nil {
		t.release()
		return t.repo.commitErr
	}
	for id, f := range t.created {
		t.repo.rows[id] = f
	}
	for id, f := range t.updated {
		t.repo.rows[id] = f
	}
	for id := range t.removed {
		delete(t.repo.rows, id)
	}
	t.release()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.repo.rollbackErr != nil {
		return t.repo.rollbackErr
	}
	if t.closed {
		return errTxClosed
	}
	t.release()
	return nil
}

type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	metadata map[string]map[string]string

	putErr     error
	deleteErr  error
	presignErr error
	// hide makes Exists report false for stored keys.
	hide bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, metadata: map[string]map[string]string{}}
}

func (s *memStore) Bucket() string { return "uploads" }

func (s *memStore) Put(ctx context.Context, key string, data []byte, _ string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	s.metadata[key] = metadata
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) Exists(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok && !s.hide
}

func (s *memStore) PresignGet(_ context.Context, key string) (string, time.Duration, error) {
	if s.presignErr != nil {
		return "", 0, s.presignErr
	}
	return "https://store.local/uploads/" + key + "?sig=x", time.Hour, nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*user.User
	err   error
}

func newMemUsers(ids ...string) *memUsers {
	m := &memUsers{users: map[string]*user.User{}}
	for _, id := range ids {
		m.users[id] = &user.User{ID: id, Email: id + "@example.com"}
	}
	return m
}

func (m *memUsers) FetchUserByID(_ context.Context, id user.ID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memUsers) UpsertUser(_ context.Context, req user.User) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	now := time.Now()
	u, ok := m.users[req.ID]
	if !ok {
		u = &user.User{ID: req.ID, CreatedAt: now}
		m.users[req.ID] = u
	}
	u.Email = req.Email
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	u.UpdatedAt = now
	c := *u
	return &c, nil
}

type memEvents struct {
	mu     sync.Mutex
	events []mq.Event
}

func (m *memEvents) Publish(_ context.Context, e mq.Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

func (m *memEvents) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

func newTestCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_general"}, []string{"result"})
}

func newTestSagaCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_saga"}, []string{"saga", "step", "result"})
}
