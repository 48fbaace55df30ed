package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atinyakov/bcards/internal/middleware"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/search"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CardService defines the card operations required by CardHandler.
type CardService interface {
	ListAll(ctx context.Context) ([]models.Card, error)
	ListMine(ctx context.Context, id models.Identity) ([]models.Card, error)
	Search(ctx context.Context, q search.Query) ([]models.Card, error)
	Read(ctx context.Context, cardID string, withOwner bool) (*models.CardView, error)
	Create(ctx context.Context, id models.Identity, in models.CardInput) (*models.Card, error)
	Update(ctx context.Context, id models.Identity, cardID string, patch models.CardPatch) (*models.Card, error)
	Delete(ctx context.Context, id models.Identity, cardID string) (*models.Card, error)
	ToggleLike(ctx context.Context, id models.Identity, cardID string) (*models.Card, error)
}

// CardHandler serves /api/cards.
type CardHandler struct {
	Cards CardService
	Log   *zap.Logger
}

// List handles GET /api/cards.
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Cards.ListAll(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "data", cards)
}

// MyCards handles GET /api/cards/my-cards.
func (h *CardHandler) MyCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cards, err := h.Cards.ListMine(ctx, middleware.IdentityFromContext(ctx))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "data", cards)
}

// Get handles GET /api/cards/{id}. The owner summary is included unless
// the query has owner=false.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	withOwner := r.URL.Query().Get("owner") != "false"
	card, err := h.Cards.Read(r.Context(), chi.URLParam(r, "id"), withOwner)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "data", card)
}

// Search handles POST /api/cards/search with {"searchTerm", "searchFields"}.
func (h *CardHandler) Search(w http.ResponseWriter, r *http.Request) {
	var q search.Query
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, h.Log, err)
		return
	}
	cards, err := h.Cards.Search(r.Context(), q)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "data", cards)
}

// Create handles POST /api/cards.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// A body that fails to decode is sent as the zero input so the role
	// check runs first.
	var in models.CardInput
	decodeErr := decodeJSON(r, &in)
	if decodeErr != nil {
		in = models.CardInput{}
	}
	card, err := h.Cards.Create(ctx, middleware.IdentityFromContext(ctx), in)
	if err != nil {
		writeError(w, h.Log, bodyErr(decodeErr, err))
		return
	}
	writeOK(w, http.StatusCreated, "created", card)
}

// Update handles PUT /api/cards/{id}.
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var patch models.CardPatch
	decodeErr := decodeJSON(r, &patch)
	if decodeErr != nil {
		patch = models.CardPatch{}
	}
	card, err := h.Cards.Update(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Log, bodyErr(decodeErr, err))
		return
	}
	writeOK(w, http.StatusOK, "updated", card)
}

// Like handles PATCH /api/cards/{id}, toggling the caller's like.
func (h *CardHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.IdentityFromContext(ctx)
	cardID := chi.URLParam(r, "id")
	card, err := h.Cards.ToggleLike(ctx, id, cardID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	verb := "unliked"
	if card.Likes.Has(id.ID) {
		verb = "liked"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Card id %s has been %s", cardID, verb),
		"data":    card,
	})
}

// Delete handles DELETE /api/cards/{id}.
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	card, err := h.Cards.Delete(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "deleted", card)
}
