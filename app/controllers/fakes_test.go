package controllers

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
)

// The fakes embed their interface so any method a test does not expect to
// be called panics with a nil receiver instead of silently succeeding.

type fakeUserRepo struct {
	repository.UserRepository
	users map[uint]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	m := make(map[uint]*models.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Search(query string) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if strings.Contains(u.Name, query) || strings.Contains(u.Email, query) {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeSessionRepo struct {
	repository.SessionRepository
	nextID     uint
	sessions   []*models.Session
	evictCalls []int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{}
}

func (f *fakeSessionRepo) Create(session *models.Session) error {
	f.nextID++
	session.ID = f.nextID
	session.CreatedAt = time.Now()
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeSessionRepo) GetByJTI(jti string) (*models.Session, error) {
	for _, s := range f.sessions {
		if s.JTI == jti && s.IsLive() {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// live returns live sessions oldest first. Creation order doubles as age
// order because Create appends.
func (f *fakeSessionRepo) live(userID uint) []models.Session {
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsLive() {
			out = append(out, *s)
		}
	}
	return out
}

func (f *fakeSessionRepo) GetLiveByUserID(userID uint) ([]models.Session, error) {
	return f.live(userID), nil
}

func (f *fakeSessionRepo) CountLiveByUserID(userID uint) (int64, error) {
	return int64(len(f.live(userID))), nil
}

func (f *fakeSessionRepo) Rotate(sessionID uint, newJTI string, newExpiry time.Time) error {
	for _, s := range f.sessions {
		if s.ID == sessionID {
			s.JTI = newJTI
			s.ExpiresAt = newExpiry
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeSessionRepo) Invalidate(jti string) error {
	for _, s := range f.sessions {
		if s.JTI == jti {
			s.Valid = false
		}
	}
	return nil
}

func (f *fakeSessionRepo) InvalidateAllForUser(userID uint) error {
	for _, s := range f.sessions {
		if s.UserID == userID {
			s.Valid = false
		}
	}
	return nil
}

func (f *fakeSessionRepo) EvictOldestForUser(userID uint, keep int) error {
	f.evictCalls = append(f.evictCalls, keep)
	ids := repository.EvictableSessionIDs(f.live(userID), keep)
	for _, id := range ids {
		for _, s := range f.sessions {
			if s.ID == id {
				s.Valid = false
			}
		}
	}
	return nil
}
