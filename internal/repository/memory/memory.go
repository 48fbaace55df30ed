// Package memory provides mutex-guarded in-memory repositories with the same
// contracts as the PostgreSQL ones. It backs the server when no database is
// configured and is used by service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/search"
)

// Store holds cards and users.
type Store struct {
	mu    sync.RWMutex
	cards map[string]*models.Card
	// biz maps a bizNumber to the card holding it.
	biz    map[int64]string
	users  map[string]*models.User
	emails map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		cards:  make(map[string]*models.Card),
		biz:    make(map[int64]string),
		users:  make(map[string]*models.User),
		emails: make(map[string]string),
	}
}

func cloneCard(c *models.Card) models.Card {
	out := *c
	out.Likes = c.Likes.Clone()
	return out
}

func (s *Store) sortedCards(keep func(*models.Card) bool) []models.Card {
	out := make([]models.Card, 0, len(s.cards))
	for _, c := range s.cards {
		if keep == nil || keep(c) {
			out = append(out, cloneCard(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BizNumber < out[j].BizNumber })
	return out
}

// ListCards returns every card ordered by bizNumber.
func (s *Store) ListCards(ctx context.Context) ([]models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCards(nil), nil
}

// ListCardsByOwner returns the cards of ownerID ordered by bizNumber.
func (s *Store) ListCardsByOwner(ctx context.Context, ownerID string) ([]models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCards(func(c *models.Card) bool { return c.OwnerID == ownerID }), nil
}

// SearchCards returns the cards matching q.
func (s *Store) SearchCards(ctx context.Context, q search.Query) ([]models.Card, error) {
	match, err := q.Matcher()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCards(match), nil
}

// GetCard fetches a card by id.
func (s *Store) GetCard(ctx context.Context, id string) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	out := cloneCard(c)
	return &out, nil
}

// MaxBizNumber returns the highest bizNumber, or 0 when empty.
func (s *Store) MaxBizNumber(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var highest int64
	for n := range s.biz {
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// InsertCard stores card unless its id or bizNumber is taken.
func (s *Store) InsertCard(ctx context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.biz[card.BizNumber]; taken {
		return apperr.ErrDuplicateKey
	}
	if _, taken := s.cards[card.ID]; taken {
		return apperr.ErrDuplicateKey
	}
	c := cloneCard(card)
	s.cards[c.ID] = &c
	s.biz[c.BizNumber] = c.ID
	return nil
}

// UpdateCard stores the editable fields of card.
func (s *Store) UpdateCard(ctx context.Context, card *models.Card) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cards[card.ID]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	cur.Title = card.Title
	cur.Subtitle = card.Subtitle
	cur.Description = card.Description
	cur.Phone = card.Phone
	cur.Email = card.Email
	cur.Web = card.Web
	cur.Image = card.Image
	cur.Address = card.Address
	cur.UpdatedAt = card.UpdatedAt
	out := cloneCard(cur)
	return &out, nil
}

// DeleteCard removes a card and returns it.
func (s *Store) DeleteCard(ctx context.Context, id string) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	delete(s.cards, id)
	delete(s.biz, c.BizNumber)
	out := cloneCard(c)
	return &out, nil
}

// ToggleLike flips userID in the card likes under the write lock.
func (s *Store) ToggleLike(ctx context.Context, cardID, userID string) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	c.Likes.Toggle(userID)
	out := cloneCard(c)
	return &out, nil
}

// PruneLikes removes liking identities that are not registered users and
// returns the number of cards changed.
func (s *Store) PruneLikes(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, c := range s.cards {
		dirty := false
		for id := range c.Likes {
			if _, ok := s.users[id]; !ok {
				delete(c.Likes, id)
				dirty = true
			}
		}
		if dirty {
			changed++
		}
	}
	return changed, nil
}

// ListUsers returns every user ordered by creation.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail fetches a user by email, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// InsertUser stores u unless its id or email is taken.
func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, taken := s.emails[key]; taken {
		return apperr.ErrDuplicateKey
	}
	if _, taken := s.users[u.ID]; taken {
		return apperr.ErrDuplicateKey
	}
	cp := *u
	s.users[cp.ID] = &cp
	s.emails[key] = cp.ID
	return nil
}

// UpdateUser stores the profile fields of u.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	cur.Phone = u.Phone
	cur.PasswordHash = u.PasswordHash
	cur.Image = u.Image
	cur.Address = u.Address
	cur.UpdatedAt = u.UpdatedAt
	out := *cur
	return &out, nil
}

// DeleteUser removes a user and returns it.
func (s *Store) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	delete(s.users, id)
	delete(s.emails, strings.ToLower(u.Email))
	out := *u
	return &out, nil
}

// SetBusiness sets the business flag of a user.
func (s *Store) SetBusiness(ctx context.Context, id string, isBusiness bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.ErrRecordNotFound
	}
	u.IsBusiness = isBusiness
	out := *u
	return &out, nil
}

// Reset removes every card and user.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = make(map[string]*models.Card)
	s.biz = make(map[int64]string)
	s.users = make(map[string]*models.User)
	s.emails = make(map[string]string)
	return nil
}
