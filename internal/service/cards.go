// Package service implements the business rules of the directory: card
// lifecycle, likes, search, the user directory and login. Persistence is
// delegated to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/cache"
	"github.com/atinyakov/bcards/internal/metrics"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/policy"
	"github.com/atinyakov/bcards/internal/search"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCreateAttempts bounds bizNumber allocation retries per creation.
const DefaultCreateAttempts = 5

// CardRepository defines the persistence operations required by CardService.
// Lookups by id return apperr.ErrRecordNotFound when no card matches.
type CardRepository interface {
	// ListCards returns every card.
	ListCards(ctx context.Context) ([]models.Card, error)
	// ListCardsByOwner returns the cards created by ownerID.
	ListCardsByOwner(ctx context.Context, ownerID string) ([]models.Card, error)
	// SearchCards returns the cards matching q.
	SearchCards(ctx context.Context, q search.Query) ([]models.Card, error)
	// GetCard fetches a card by id.
	GetCard(ctx context.Context, id string) (*models.Card, error)
	// MaxBizNumber returns the highest bizNumber in use, or 0 when there are no cards.
	MaxBizNumber(ctx context.Context) (int64, error)
	// InsertCard stores a new card. It returns apperr.ErrDuplicateKey when the
	// bizNumber is already taken and never overwrites an existing card.
	InsertCard(ctx context.Context, card *models.Card) error
	// UpdateCard persists the editable fields of card and returns the stored state.
	UpdateCard(ctx context.Context, card *models.Card) (*models.Card, error)
	// DeleteCard removes a card and returns its last state.
	DeleteCard(ctx context.Context, id string) (*models.Card, error)
	// ToggleLike atomically adds userID to the card likes, or removes it when
	// present, and returns the stored card.
	ToggleLike(ctx context.Context, cardID, userID string) (*models.Card, error)
}

// OwnerLookup resolves card owners.
type OwnerLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// CardService orchestrates card creation, reads, updates, deletion, likes
// and search.
type CardService struct {
	repo     CardRepository
	owners   OwnerLookup
	cache    *cache.Summaries
	log      *zap.Logger
	attempts int
	now      func() time.Time
	newID    func() string
}

// CardOption configures a CardService.
type CardOption func(*CardService)

// WithCardLogger sets the logger.
func WithCardLogger(l *zap.Logger) CardOption {
	return func(s *CardService) { s.log = l }
}

// WithOwnerCache sets the owner summary cache used by Read.
func WithOwnerCache(c *cache.Summaries) CardOption {
	return func(s *CardService) { s.cache = c }
}

// WithCreateAttempts bounds how many bizNumbers a creation may try.
func WithCreateAttempts(n int) CardOption {
	return func(s *CardService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithCardClock overrides the time source.
func WithCardClock(now func() time.Time) CardOption {
	return func(s *CardService) { s.now = now }
}

// NewCardService constructs a CardService. owners may be nil, in which case
// owner references are never resolved.
func NewCardService(repo CardRepository, owners OwnerLookup, opts ...CardOption) *CardService {
	s := &CardService{
		repo:     repo,
		owners:   owners,
		log:      zap.NewNop(),
		attempts: DefaultCreateAttempts,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextBizNumber returns the bizNumber a new card would get: one above the
// current maximum, or 1 for an empty collection. Concurrent callers may
// observe the same value; InsertCard arbitrates.
func (s *CardService) NextBizNumber(ctx context.Context) (int64, error) {
	highest, err := s.repo.MaxBizNumber(ctx)
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// ListAll returns every card.
func (s *CardService) ListAll(ctx context.Context) ([]models.Card, error) {
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list cards", err)
	}
	return nonNil(cards), nil
}

// ListMine returns the cards owned by the caller.
func (s *CardService) ListMine(ctx context.Context, id models.Identity) ([]models.Card, error) {
	if err := policy.Check(id, policy.ListMyCards, policy.Resource{}); err != nil {
		return nil, err
	}
	cards, err := s.repo.ListCardsByOwner(ctx, id.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list cards", err)
	}
	return nonNil(cards), nil
}

// Search returns the cards where any of q.Fields contains q.Term, ignoring
// case. No match yields an empty slice.
func (s *CardService) Search(ctx context.Context, q search.Query) ([]models.Card, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cards, err := s.repo.SearchCards(ctx, q)
	if err != nil {
		return nil, apperr.Internal("failed to search cards", err)
	}
	return nonNil(cards), nil
}

// Read fetches a card. When withOwner is set the owner reference is resolved
// to a summary; an owner that no longer exists leaves the summary empty.
func (s *CardService) Read(ctx context.Context, id string, withOwner bool) (*models.CardView, error) {
	card, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &models.CardView{Card: *card}
	if withOwner {
		owner, err := s.ownerSummary(ctx, card.OwnerID)
		if err != nil {
			return nil, err
		}
		view.Owner = owner
	}
	return view, nil
}

// Create stores a new card owned by the caller. A lost bizNumber race is
// retried with a fresh allocation; once the attempts are exhausted a
// conflict is returned and the caller may retry.
func (s *CardService) Create(ctx context.Context, id models.Identity, in models.CardInput) (*models.Card, error) {
	if err := policy.Check(id, policy.CreateCard, policy.Resource{}); err != nil {
		return nil, err
	}
	if errs := in.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}

	card := in.NewCard()
	card.OwnerID = id.ID

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		next, err := s.NextBizNumber(ctx)
		if err != nil {
			return nil, apperr.Internal("failed to allocate bizNumber", err)
		}
		now := s.now()
		card.ID = s.newID()
		card.BizNumber = next
		card.CreatedAt, card.UpdatedAt = now, now

		err = s.repo.InsertCard(ctx, &card)
		if err == nil {
			s.log.Info("card created",
				zap.String("card_id", card.ID),
				zap.Int64("biz_number", card.BizNumber),
				zap.String("owner_id", card.OwnerID))
			return &card, nil
		}
		if !errors.Is(err, apperr.ErrDuplicateKey) {
			s.log.Error("failed to save card", zap.Error(err))
			return nil, apperr.Internal("error saving the card", err)
		}
		metrics.BizNumberConflicts.Inc()
		s.log.Warn("bizNumber taken, retrying",
			zap.Int64("biz_number", next), zap.Int("attempt", attempt))
		lastErr = err
	}
	return nil, apperr.Conflict(
		fmt.Sprintf("could not allocate a bizNumber after %d attempts", s.attempts), lastErr)
}

// Update applies the present fields of patch to a card owned by the caller.
// BizNumber, owner and likes are never touched.
func (s *CardService) Update(ctx context.Context, id models.Identity, cardID string, patch models.CardPatch) (*models.Card, error) {
	if err := requireLogin(id, policy.UpdateCard); err != nil {
		return nil, err
	}
	card, err := s.fetch(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(id, policy.UpdateCard, policy.Resource{OwnerID: card.OwnerID}); err != nil {
		return nil, err
	}
	if errs := patch.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}

	patch.Apply(card)
	card.UpdatedAt = s.now()
	updated, err := s.repo.UpdateCard(ctx, card)
	if err != nil {
		return nil, s.storeErr("update", cardID, err)
	}
	return updated, nil
}

// Delete removes a card owned by the caller; admins may delete any card.
func (s *CardService) Delete(ctx context.Context, id models.Identity, cardID string) (*models.Card, error) {
	if err := requireLogin(id, policy.DeleteCard); err != nil {
		return nil, err
	}
	card, err := s.fetch(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(id, policy.DeleteCard, policy.Resource{OwnerID: card.OwnerID}); err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteCard(ctx, cardID)
	if err != nil {
		return nil, s.storeErr("delete", cardID, err)
	}
	s.log.Info("card deleted", zap.String("card_id", cardID), zap.String("by", id.ID))
	return deleted, nil
}

// ToggleLike flips the caller's membership in the card likes. Any logged-in
// identity may like any card, its owner included.
func (s *CardService) ToggleLike(ctx context.Context, id models.Identity, cardID string) (*models.Card, error) {
	if err := policy.Check(id, policy.LikeCard, policy.Resource{}); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(cardID); err != nil {
		return nil, invalidCardID(cardID)
	}
	card, err := s.repo.ToggleLike(ctx, cardID, id.ID)
	if err != nil {
		return nil, s.storeErr("like", cardID, err)
	}
	state := "unliked"
	if card.Likes.Has(id.ID) {
		state = "liked"
	}
	metrics.LikeToggles.WithLabelValues(state).Inc()
	return card, nil
}

func (s *CardService) fetch(ctx context.Context, cardID string) (*models.Card, error) {
	if _, err := uuid.Parse(cardID); err != nil {
		return nil, invalidCardID(cardID)
	}
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, s.storeErr("get", cardID, err)
	}
	return card, nil
}

func (s *CardService) ownerSummary(ctx context.Context, ownerID string) (*models.OwnerSummary, error) {
	if s.owners == nil || ownerID == "" {
		return nil, nil
	}
	if sum, ok := s.cache.Get(ownerID); ok {
		return sum, nil
	}
	u, err := s.owners.GetUser(ctx, ownerID)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to resolve card owner", err)
	}
	sum := u.Summary()
	s.cache.Set(sum)
	return sum, nil
}

func (s *CardService) storeErr(op, cardID string, err error) error {
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return apperr.NotFound(fmt.Sprintf("card id '%s' not found", cardID))
	}
	s.log.Error("card store failure", zap.String("op", op), zap.String("card_id", cardID), zap.Error(err))
	return apperr.Internal("failed to "+op+" card", err)
}

func invalidCardID(id string) error {
	return apperr.NotFound(fmt.Sprintf("invalid format for card id '%s'", id))
}

// requireLogin rejects anonymous callers before any lookup so they see an
// authentication failure rather than the existence of a resource.
func requireLogin(id models.Identity, action policy.Action) error {
	if id.Authenticated() {
		return nil
	}
	return policy.Check(id, action, policy.Resource{})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
