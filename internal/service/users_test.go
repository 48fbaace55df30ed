package service

import (
	"context"
	"testing"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/cache"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func validUserInput(email string, isBusiness bool) models.UserInput {
	return models.UserInput{
		Name:     models.Name{First: "Dana", Last: "Levi"},
		Phone:    "050-7654321",
		Email:    email,
		Password: "Abc123!x",
		Image:    models.Image{URL: "https://img.example.com/dana.png"},
		Address: models.Address{
			Country: "Israel", City: "Tel Aviv", Street: "Dizengoff", HouseNumber: 10, Zip: "6433",
		},
		IsBusiness: &isBusiness,
	}
}

func newUserService(store *memory.Store, opts ...UserOption) *UserService {
	return NewUserService(store, append([]UserOption{WithHashCost(bcrypt.MinCost)}, opts...)...)
}

func TestUserCreate_HashesPasswordAndAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.New())

	u, err := svc.Create(ctx, validUserInput("Dana@Example.com", true))
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", u.Email)
	assert.True(t, u.IsBusiness)
	assert.False(t, u.IsAdmin)
	assert.Equal(t, models.DefaultProfileImageAlt, u.Image.Alt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Abc123!x")))
	_, err = uuid.Parse(u.ID)
	assert.NoError(t, err)
}

func TestUserCreate_DuplicateEmailIsConflict(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.New())

	_, err := svc.Create(ctx, validUserInput("dana@example.com", false))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validUserInput("DANA@example.com", false))
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
}

func TestUserCreate_Invalid(t *testing.T) {
	in := validUserInput("not-an-email", false)
	in.Password = "short"
	in.IsBusiness = nil

	_, err := newUserService(memory.New()).Create(context.Background(), in)
	require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Details, 3)
}

func TestUserGetAndList_Authorization(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.New())
	u, err := svc.Create(ctx, validUserInput("dana@example.com", false))
	require.NoError(t, err)
	self := u.Identity()
	stranger := models.Identity{ID: uuid.NewString()}

	got, err := svc.Get(ctx, self, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Get(ctx, admin, u.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, u.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "got %v", err)

	_, err = svc.Get(ctx, admin, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	_, err = svc.List(ctx, self)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "got %v", err)

	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.List(ctx, models.Anonymous)
	assert.True(t, apperr.Is(err, apperr.KindAuthentication), "got %v", err)
}

func TestUserUpdate_SelfOnlyRehashesAndEvictsSummary(t *testing.T) {
	ctx := context.Background()
	summaries := cache.New(0)
	svc := newUserService(memory.New(), WithSummaryCache(summaries))
	u, err := svc.Create(ctx, validUserInput("dana@example.com", true))
	require.NoError(t, err)
	summaries.Set(u.Summary())

	phone := "052-1111111"
	password := "Xyz789$q"
	patch := models.UserPatch{Phone: &phone, Password: &password}

	_, err = svc.Update(ctx, admin, u.ID, patch)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "got %v", err)

	updated, err := svc.Update(ctx, u.Identity(), u.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(password)))
	assert.Equal(t, u.Email, updated.Email)

	_, cached := summaries.Get(u.ID)
	assert.False(t, cached)

	_, err = svc.Update(ctx, u.Identity(), u.ID, models.UserPatch{})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestUserDelete(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.New())
	a, err := svc.Create(ctx, validUserInput("a@example.com", false))
	require.NoError(t, err)
	b, err := svc.Create(ctx, validUserInput("b@example.com", false))
	require.NoError(t, err)

	_, err = svc.Delete(ctx, a.Identity(), b.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "got %v", err)

	_, err = svc.Delete(ctx, a.Identity(), a.ID)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, admin, b.ID)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, admin, b.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	_, err = svc.Delete(ctx, admin, "bad-id")
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestUserSetBusiness_SelfOnly(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.New())
	u, err := svc.Create(ctx, validUserInput("dana@example.com", false))
	require.NoError(t, err)

	yes := true
	_, err = svc.SetBusiness(ctx, admin, u.ID, &yes)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "got %v", err)

	// a missing flag from someone else is still an authorization failure
	_, err = svc.SetBusiness(ctx, admin, u.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "got %v", err)

	_, err = svc.SetBusiness(ctx, u.Identity(), u.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	updated, err := svc.SetBusiness(ctx, u.Identity(), u.ID, &yes)
	require.NoError(t, err)
	assert.True(t, updated.IsBusiness)
}
