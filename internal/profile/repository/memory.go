package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/profile"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory Repository used by tests and when no MongoDB
// is configured. Stored profiles are cloned on the way in and out.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[primitive.ObjectID]*profile.Profile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[primitive.ObjectID]*profile.Profile)}
}

func (m *MemoryRepo) FindByUser(_ context.Context, userID primitive.ObjectID) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// List returns profiles in insertion order (ObjectIDs are time ordered).
func (m *MemoryRepo) List(_ context.Context) ([]*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*profile.Profile, 0, len(m.byUser))
	for _, p := range m.byUser {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (m *MemoryRepo) Upsert(_ context.Context, userID primitive.ObjectID, f profile.Fields) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUser[userID]
	if !ok {
		p = &profile.Profile{
			ID:         primitive.NewObjectID(),
			User:       userID,
			Experience: []profile.Experience{},
			Education:  []profile.Education{},
			Date:       time.Now().UTC(),
		}
		m.byUser[userID] = p
	}
	p.Status = f.Status
	p.Skills = append([]string(nil), f.Skills...)
	p.Website = f.Website
	p.Social = f.Social
	if f.Company != nil {
		p.Company = *f.Company
	}
	if f.Location != nil {
		p.Location = *f.Location
	}
	if f.Bio != nil {
		p.Bio = *f.Bio
	}
	if f.GitHubUsername != nil {
		p.GitHubUsername = *f.GitHubUsername
	}
	return p.Clone(), nil
}

func (m *MemoryRepo) Insert(_ context.Context, p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[p.User]; ok {
		return ErrExists
	}
	cp := p.Clone()
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	m.byUser[p.User] = cp
	return nil
}

func (m *MemoryRepo) DeleteByUser(_ context.Context, userID primitive.ObjectID) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUser[userID]
	if !ok {
		return nil, nil
	}
	delete(m.byUser, userID)
	return p, nil
}

// update applies fn to the stored profile under the write lock.
func (m *MemoryRepo) update(userID primitive.ObjectID, fn func(p *profile.Profile)) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	fn(p)
	return p.Clone(), nil
}

func (m *MemoryRepo) PrependExperience(_ context.Context, userID primitive.ObjectID, e profile.Experience) (*profile.Profile, error) {
	return m.update(userID, func(p *profile.Profile) {
		p.Experience = append([]profile.Experience{e}, p.Experience...)
	})
}

func (m *MemoryRepo) RemoveExperience(_ context.Context, userID, entryID primitive.ObjectID) (*profile.Profile, error) {
	return m.update(userID, func(p *profile.Profile) {
		kept := make([]profile.Experience, 0, len(p.Experience))
		for _, e := range p.Experience {
			if e.ID != entryID {
				kept = append(kept, e)
			}
		}
		p.Experience = kept
	})
}

func (m *MemoryRepo) PrependEducation(_ context.Context, userID primitive.ObjectID, e profile.Education) (*profile.Profile, error) {
	return m.update(userID, func(p *profile.Profile) {
		p.Education = append([]profile.Education{e}, p.Education...)
	})
}

func (m *MemoryRepo) RemoveEducation(_ context.Context, userID, entryID primitive.ObjectID) (*profile.Profile, error) {
	return m.update(userID, func(p *profile.Profile) {
		kept := make([]profile.Education, 0, len(p.Education))
		for _, e := range p.Education {
			if e.ID != entryID {
				kept = append(kept, e)
			}
		}
		p.Education = kept
	})
}
