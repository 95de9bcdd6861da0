package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/events"
	"github.com/devconnector/devconnector/backend/go-services/internal/models"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/normalize"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/repository"
	"github.com/devconnector/devconnector/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service defines the profile operations used by the handler layer.
type Service interface {
	GetOwnProfile(ctx context.Context, userID primitive.ObjectID) (*profile.View, error)
	CreateOrUpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*profile.View, error)
	ListProfiles(ctx context.Context) ([]*profile.View, error)
	// GetProfileByUser takes the raw path id; malformed ids are ErrNotFound.
	GetProfileByUser(ctx context.Context, rawUserID string) (*profile.View, error)
	DeleteOwnProfile(ctx context.Context, userID primitive.ObjectID) error
	AddExperience(ctx context.Context, userID primitive.ObjectID, in ExperienceInput) (*profile.View, error)
	RemoveExperience(ctx context.Context, userID primitive.ObjectID, rawEntryID string) (*profile.View, error)
	AddEducation(ctx context.Context, userID primitive.ObjectID, in EducationInput) (*profile.View, error)
	RemoveEducation(ctx context.Context, userID primitive.ObjectID, rawEntryID string) (*profile.View, error)
}

// UserDirectory is the part of the user store the profile service needs.
type UserDirectory interface {
	GetManyByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

type Cache interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*profile.View, error)
	Set(ctx context.Context, userID primitive.ObjectID, v *profile.View) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

// Transactor runs fn atomically. Store calls made with the ctx passed to fn
// take part in the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Option func(*ProfileService)

func WithCache(c Cache) Option                { return func(s *ProfileService) { s.cache = c } }
func WithPublisher(p events.Publisher) Option { return func(s *ProfileService) { s.events = p } }
func WithSessions(r SessionRevoker) Option    { return func(s *ProfileService) { s.sessions = r } }
func WithTransactor(t Transactor) Option      { return func(s *ProfileService) { s.tx = t } }
func WithClock(now func() time.Time) Option   { return func(s *ProfileService) { s.now = now } }

var _ Service = (*ProfileService)(nil)

type ProfileService struct {
	repo     repository.Repository
	users    UserDirectory
	cache    Cache
	events   events.Publisher
	sessions SessionRevoker
	tx       Transactor
	now      func() time.Time
	// gen counts cache invalidations made by this process.
	gen atomic.Uint64
}

func New(repo repository.Repository, users UserDirectory, opts ...Option) *ProfileService {
	s := &ProfileService{repo: repo, users: users, events: events.Noop{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(users UserDirectory, opts ...Option) *ProfileService {
	return New(repository.NewMemoryRepo(), users, opts...)
}

func (s *ProfileService) GetOwnProfile(ctx context.Context, userID primitive.ObjectID) (*profile.View, error) {
	return s.byUser(ctx, userID)
}

func (s *ProfileService) GetProfileByUser(ctx context.Context, rawUserID string) (*profile.View, error) {
	userID, err := primitive.ObjectIDFromHex(rawUserID)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.byUser(ctx, userID)
}

// byUser reads through the cache. A view is only stored when no
// invalidation happened in this process while it was being loaded. Writes
// from other instances can still race the Set; the cache TTL bounds that.
func (s *ProfileService) byUser(ctx context.Context, userID primitive.ObjectID) (*profile.View, error) {
	gen := s.gen.Load()
	if s.cache != nil {
		v, err := s.cache.Get(ctx, userID)
		if err != nil {
			logger.Warnf("profile cache get %s: %v", userID.Hex(), err)
		} else if v != nil {
			return v, nil
		}
	}
	p, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	v, err := s.populate(ctx, p)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.gen.Load() == gen {
		if err := s.cache.Set(ctx, userID, v); err != nil {
			logger.Warnf("profile cache set %s: %v", userID.Hex(), err)
		}
	}
	return v, nil
}

func (s *ProfileService) ListProfiles(ctx context.Context) ([]*profile.View, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.User)
	}
	users, err := s.users.GetManyByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load profile users: %w", err)
	}
	out := make([]*profile.View, 0, len(list))
	for _, p := range list {
		out = append(out, view(p, users))
	}
	return out, nil
}

func (s *ProfileService) CreateOrUpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*profile.View, error) {
	var fe fieldErrors
	f := profile.Fields{
		Status:         required(&fe, "status", in.Status, "Status is required"),
		Company:        in.Company,
		Location:       in.Location,
		Bio:            in.Bio,
		GitHubUsername: in.GitHubUsername,
	}
	skills, err := ParseSkills(in.Skills)
	switch {
	case err != nil:
		fe.add("skills", "Skills must be a list or a comma separated string")
	case len(skills) == 0:
		fe.add("skills", "Skills is required")
	}
	f.Skills = skills
	f.Website = link(&fe, "website", in.Website)
	f.Social = profile.Social{
		YouTube:   link(&fe, "youtube", in.YouTube),
		Twitter:   link(&fe, "twitter", in.Twitter),
		Facebook:  link(&fe, "facebook", in.Facebook),
		LinkedIn:  link(&fe, "linkedin", in.LinkedIn),
		Instagram: link(&fe, "instagram", in.Instagram),
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	owner, err := s.users.GetManyByIDs(ctx, []primitive.ObjectID{userID})
	if err != nil {
		return nil, fmt.Errorf("load profile user: %w", err)
	}
	if _, ok := owner[userID]; !ok {
		return nil, ErrUserNotFound
	}
	p, err := s.repo.Upsert(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	s.invalidate(ctx, userID)
	s.publish(ctx, events.ProfileUpserted, userID, "")
	return view(p, owner), nil
}

// link normalizes an optional URL field; empty stays empty.
func link(fe *fieldErrors, param, raw string) string {
	if raw == "" {
		return ""
	}
	u, err := normalize.URL(raw)
	if err != nil {
		fe.add(param, "Please include a valid URL")
		return ""
	}
	return u
}

// DeleteOwnProfile removes the profile and then the user. With a Transactor
// both deletes commit together; without one the profile is restored when the
// user delete fails.
func (s *ProfileService) DeleteOwnProfile(ctx context.Context, userID primitive.ObjectID) error {
	if s.tx != nil {
		err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.repo.DeleteByUser(ctx, userID); err != nil {
				return fmt.Errorf("delete profile: %w", err)
			}
			if err := s.users.DeleteByID(ctx, userID); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		deleted, err := s.repo.DeleteByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if err := s.users.DeleteByID(ctx, userID); err != nil {
			if deleted != nil {
				if rerr := s.repo.Insert(ctx, deleted); rerr != nil {
					logger.Errorf("restore profile of %s after failed user delete: %v", userID.Hex(), rerr)
				}
			}
			return fmt.Errorf("delete user: %w", err)
		}
	}

	s.invalidate(ctx, userID)
	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, userID.Hex()); err != nil {
			logger.Warnf("revoke sessions of deleted user %s: %v", userID.Hex(), err)
		}
	}
	s.publish(ctx, events.UserDeleted, userID, "")
	return nil
}

func (s *ProfileService) AddExperience(ctx context.Context, userID primitive.ObjectID, in ExperienceInput) (*profile.View, error) {
	var fe fieldErrors
	e := profile.Experience{
		ID:          primitive.NewObjectID(),
		Title:       required(&fe, "title", in.Title, "Title is required"),
		Company:     required(&fe, "company", in.Company, "Company is required"),
		Location:    in.Location,
		Current:     in.Current,
		Description: in.Description,
	}
	e.From, e.To = dateRange(&fe, in.From, in.To)
	if err := fe.err(); err != nil {
		return nil, err
	}
	p, err := s.repo.PrependExperience(ctx, userID, e)
	if err != nil {
		return nil, notFound(err)
	}
	return s.changed(ctx, p, events.ProfileExperienceAdded, e.ID.Hex())
}

func (s *ProfileService) AddEducation(ctx context.Context, userID primitive.ObjectID, in EducationInput) (*profile.View, error) {
	var fe fieldErrors
	e := profile.Education{
		ID:           primitive.NewObjectID(),
		School:       required(&fe, "school", in.School, "School is required"),
		Degree:       required(&fe, "degree", in.Degree, "Degree is required"),
		FieldOfStudy: required(&fe, "fieldofstudy", in.FieldOfStudy, "Field of study is required"),
		Current:      in.Current,
		Description:  in.Description,
	}
	e.From, e.To = dateRange(&fe, in.From, in.To)
	if err := fe.err(); err != nil {
		return nil, err
	}
	p, err := s.repo.PrependEducation(ctx, userID, e)
	if err != nil {
		return nil, notFound(err)
	}
	return s.changed(ctx, p, events.ProfileEducationAdded, e.ID.Hex())
}

func (s *ProfileService) RemoveExperience(ctx context.Context, userID primitive.ObjectID, rawEntryID string) (*profile.View, error) {
	return s.remove(ctx, userID, rawEntryID, s.repo.RemoveExperience, events.ProfileExperienceRemoved)
}

func (s *ProfileService) RemoveEducation(ctx context.Context, userID primitive.ObjectID, rawEntryID string) (*profile.View, error) {
	return s.remove(ctx, userID, rawEntryID, s.repo.RemoveEducation, events.ProfileEducationRemoved)
}

type removeFunc func(ctx context.Context, userID, entryID primitive.ObjectID) (*profile.Profile, error)

// remove pulls an entry by id. An id that cannot match any entry leaves
// the profile unchanged.
func (s *ProfileService) remove(ctx context.Context, userID primitive.ObjectID, rawEntryID string, pull removeFunc, eventType string) (*profile.View, error) {
	entryID, err := primitive.ObjectIDFromHex(rawEntryID)
	if err != nil {
		p, err := s.repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, notFound(err)
		}
		return s.populate(ctx, p)
	}
	p, err := pull(ctx, userID, entryID)
	if err != nil {
		return nil, notFound(err)
	}
	return s.changed(ctx, p, eventType, entryID.Hex())
}

// changed populates a mutated profile, drops its cache entry and publishes.
func (s *ProfileService) changed(ctx context.Context, p *profile.Profile, eventType, entryID string) (*profile.View, error) {
	s.invalidate(ctx, p.User)
	s.publish(ctx, eventType, p.User, entryID)
	return s.populate(ctx, p)
}

// UserChanged drops the cached view of the user's profile after the user's
// own name or avatar changed.
func (s *ProfileService) UserChanged(ctx context.Context, userID primitive.ObjectID) {
	s.invalidate(ctx, userID)
}

func (s *ProfileService) invalidate(ctx context.Context, userID primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	s.gen.Add(1)
	if err := s.cache.Delete(ctx, userID); err != nil {
		logger.Warnf("profile cache delete %s: %v", userID.Hex(), err)
	}
}

func (s *ProfileService) publish(ctx context.Context, eventType string, userID primitive.ObjectID, entryID string) {
	e := events.Event{Type: eventType, UserID: userID.Hex(), EntryID: entryID, At: s.now().UTC()}
	if err := s.events.Publish(ctx, e); err != nil {
		logger.Warnf("publish %s for %s: %v", eventType, userID.Hex(), err)
	}
}

func (s *ProfileService) populate(ctx context.Context, p *profile.Profile) (*profile.View, error) {
	users, err := s.users.GetManyByIDs(ctx, []primitive.ObjectID{p.User})
	if err != nil {
		return nil, fmt.Errorf("load profile user: %w", err)
	}
	return view(p, users), nil
}

func view(p *profile.Profile, users map[primitive.ObjectID]*models.User) *profile.View {
	v := &profile.View{Profile: *p}
	if u, ok := users[p.User]; ok {
		v.User = &profile.UserRef{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
	}
	return v
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
