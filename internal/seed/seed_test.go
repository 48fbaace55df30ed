package seed

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const sample = `
users:
  - name: {first: Dana, last: Levi}
    phone: "050-7654321"
    email: Dana@Example.com
    password: "Abc123!x"
    image: {url: "https://img.example.com/dana.png"}
    address: {country: Israel, city: Tel Aviv, street: Dizengoff, houseNumber: 10, zip: "6433"}
    isBusiness: true
  - name: {first: Avi, last: Cohen}
    phone: "0521234567"
    email: avi@example.com
    password: "Xyz789$q"
    image: {url: "https://img.example.com/avi.png"}
    address: {country: Israel, city: Haifa, street: Herzl, houseNumber: 3, zip: "3303"}
    isBusiness: false
    isAdmin: true
cards:
  - title: Dental clinic
    subtitle: Family practice
    description: Check-ups and cleaning
    phone: "050-1234567"
    email: clinic@example.com
    address: {country: Israel, city: Haifa, street: Herzl, houseNumber: 12, zip: "3303"}
    owner: dana@example.com
    bizNumber: 100
    likes: [avi@example.com]
  - title: Bakery
    subtitle: Fresh bread
    description: Open every morning
    phone: "050-2222222"
    email: bakery@example.com
    address: {country: Israel, city: Eilat, street: Main, houseNumber: 1, zip: "8800"}
    owner: dana@example.com
`

func TestLoadAndRun(t *testing.T) {
	ctx := context.Background()
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, ds.Users, 2)
	require.Len(t, ds.Cards, 2)

	store := memory.New()
	res, err := New(store, zap.NewNop(), bcrypt.MinCost).Run(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 2, Cards: 2}, res)

	avi, err := store.GetUserByEmail(ctx, "avi@example.com")
	require.NoError(t, err)
	assert.True(t, avi.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(avi.PasswordHash), []byte("Xyz789$q")))

	dana, err := store.GetUserByEmail(ctx, "dana@example.com")
	require.NoError(t, err)

	cards, err := store.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, int64(100), cards[0].BizNumber)
	assert.Equal(t, int64(101), cards[1].BizNumber)
	assert.Equal(t, dana.ID, cards[0].OwnerID)
	assert.True(t, cards[0].Likes.Has(avi.ID))
}

func TestRun_ReplacesExistingData(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seeder := New(store, zap.NewNop(), bcrypt.MinCost)
	for i := 0; i < 2; i++ {
		ds, err := Load(strings.NewReader(sample))
		require.NoError(t, err)
		_, err = seeder.Run(ctx, ds)
		require.NoError(t, err)
	}
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestRun_LikesAreASetAndEmailsAreNormalized(t *testing.T) {
	ctx := context.Background()
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	ds.Cards[0].Owner = " DANA@example.com "
	ds.Cards[0].Likes = []string{"avi@example.com", " AVI@Example.com", "dana@example.com"}

	store := memory.New()
	_, err = New(store, zap.NewNop(), bcrypt.MinCost).Run(ctx, ds)
	require.NoError(t, err)

	dana, err := store.GetUserByEmail(ctx, "dana@example.com")
	require.NoError(t, err)
	avi, err := store.GetUserByEmail(ctx, "avi@example.com")
	require.NoError(t, err)

	cards, err := store.ListCards(ctx)
	require.NoError(t, err)
	var clinic models.Card
	for _, c := range cards {
		if c.BizNumber == 100 {
			clinic = c
		}
	}
	assert.Equal(t, dana.ID, clinic.OwnerID)
	assert.Equal(t, 2, clinic.Likes.Len())
	assert.True(t, clinic.Likes.Has(avi.ID))
	assert.True(t, clinic.Likes.Has(dana.ID))
}

// txStore applies a run to its store only when the whole run succeeds.
type txStore struct {
	*memory.Store
	failCards bool
	committed bool
}

func (s *txStore) InsertCard(ctx context.Context, c *models.Card) error {
	if s.failCards {
		return errors.New("disk full")
	}
	return s.Store.InsertCard(ctx, c)
}

func (s *txStore) InTx(ctx context.Context, fn func(Target) error) error {
	if err := fn(s); err != nil {
		return err
	}
	s.committed = true
	return nil
}

func TestRun_WritesThroughTransaction(t *testing.T) {
	ctx := context.Background()
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	ok := &txStore{Store: memory.New()}
	_, err = New(ok, zap.NewNop(), bcrypt.MinCost).Run(ctx, ds)
	require.NoError(t, err)
	assert.True(t, ok.committed)

	failing := &txStore{Store: memory.New(), failCards: true}
	_, err = New(failing, zap.NewNop(), bcrypt.MinCost).Run(ctx, ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, failing.committed)
}

func TestValidate_References(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	ds.Cards[0].Owner = "avi@example.com"
	ds.Cards[1].Likes = []string{"ghost@example.com"}
	ds.Cards[1].BizNumber = 100

	err = ds.Validate()
	require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Details, 3)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("users:\n  - nickname: x\n"))
	assert.Error(t, err)
}

func TestBundledDataFileIsValid(t *testing.T) {
	f, err := os.Open("../../data/seed.yaml")
	require.NoError(t, err)
	defer f.Close()

	ds, err := Load(f)
	require.NoError(t, err)
	assert.NoError(t, ds.Validate())
}
