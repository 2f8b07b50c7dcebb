package service

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// In-memory stubs shared by the service tests. They implement just enough of
// the repository ports to exercise the services, and count calls so tests
// can assert what was (and was not) touched.

type stubUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
	nextID  int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	u := *user
	u.ID = "user-" + string(rune('0'+r.nextID))
	r.byEmail[u.Email] = &u
	r.byID[u.ID] = &u
	return &u, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) List(_ context.Context, organizationID string, _, _ int) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.byID {
		if organizationID == "" || u.OrganizationID == organizationID {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

type stubSessionStore struct {
	mu      sync.Mutex
	records map[string]domain.SessionRecord
	puts    int
	gets    int
	deletes int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{records: make(map[string]domain.SessionRecord)}
}

func (s *stubSessionStore) Put(_ context.Context, rec domain.SessionRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.records[rec.ID] = rec
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, sessionID string) (*domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *stubSessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.records, sessionID)
	return nil
}

type stubAPIKeyRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.APIKey
	nextID int
}

func newStubAPIKeyRepo() *stubAPIKeyRepo {
	return &stubAPIKeyRepo{byID: make(map[string]*domain.APIKey)}
}

func (r *stubAPIKeyRepo) Create(_ context.Context, key *domain.APIKey) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	k := *key
	k.ID = "key-" + string(rune('0'+r.nextID))
	r.byID[k.ID] = &k
	cp := k
	return &cp, nil
}

func (r *stubAPIKeyRepo) FindByDigest(_ context.Context, digest string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.byID {
		if k.Digest == digest {
			cp := *k
			return &cp, nil
		}
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (r *stubAPIKeyRepo) FindByID(_ context.Context, id string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAPIKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (r *stubAPIKeyRepo) ListByUser(_ context.Context, userID string) ([]domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.APIKey
	for _, k := range r.byID {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (r *stubAPIKeyRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.byID[id]
	if !ok {
		return domain.ErrAPIKeyNotFound
	}
	if k.Revoked() {
		return domain.ErrAPIKeyRevoked
	}
	k.RevokedAt = time.Now().UTC()
	return nil
}

type stubGrantRepo struct {
	mu       sync.Mutex
	byDigest map[string]*domain.BreakGlassGrant
	now      func() time.Time
}

func newStubGrantRepo() *stubGrantRepo {
	return &stubGrantRepo{byDigest: make(map[string]*domain.BreakGlassGrant), now: time.Now}
}

func (r *stubGrantRepo) Create(_ context.Context, grant *domain.BreakGlassGrant) (*domain.BreakGlassGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := *grant
	r.byDigest[g.Token] = &g
	cp := g
	return &cp, nil
}

func (r *stubGrantRepo) Consume(_ context.Context, tokenDigest, userID string) (*domain.BreakGlassGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byDigest[tokenDigest]
	if !ok || g.UserID != userID {
		return nil, domain.ErrGrantNotFound
	}
	if !g.ConsumedAt.IsZero() {
		return nil, domain.ErrGrantConsumed
	}
	if !r.now().Before(g.ExpiresAt) {
		return nil, domain.ErrGrantExpired
	}
	g.ConsumedAt = r.now()
	cp := *g
	return &cp, nil
}

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	fail    error
}

func (r *stubAuditRepo) Append(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) FindByActor(_ context.Context, actorID string, limit int) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if e.ActorID == actorID {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubAuditRepo) all() []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
