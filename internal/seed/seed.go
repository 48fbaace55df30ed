// Package seed loads a YAML data set and writes it into an empty store.
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// User is a seeded account.
type User struct {
	models.UserInput `yaml:",inline"`
	IsAdmin          bool `yaml:"isAdmin"`
}

// Card is a seeded card. Owner and Likes refer to seeded users by email.
// A zero BizNumber is allocated after the highest explicit one.
type Card struct {
	models.CardInput `yaml:",inline"`
	Owner            string   `yaml:"owner"`
	BizNumber        int64    `yaml:"bizNumber"`
	Likes            []string `yaml:"likes"`
}

// Dataset is the content of a seed file.
type Dataset struct {
	Users []User `yaml:"users"`
	Cards []Card `yaml:"cards"`
}

// Target is the store being seeded.
type Target interface {
	Reset(ctx context.Context) error
	InsertUser(ctx context.Context, u *models.User) error
	InsertCard(ctx context.Context, c *models.Card) error
}

// Transactor is implemented by targets that can apply a whole run
// atomically. Run writes through the Target handed to fn.
type Transactor interface {
	InTx(ctx context.Context, fn func(Target) error) error
}

// Result counts the inserted records.
type Result struct {
	Users int
	Cards int
}

// Load decodes a data set.
func Load(r io.Reader) (*Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	return &ds, nil
}

// Validate checks every record and the references between them.
func (ds *Dataset) Validate() error {
	var errs []string
	emails := make(map[string]bool, len(ds.Users))
	business := make(map[string]bool, len(ds.Users))
	for i := range ds.Users {
		u := &ds.Users[i]
		for _, msg := range u.Validate() {
			errs = append(errs, fmt.Sprintf("users[%d]: %s", i, msg))
		}
		email := emailKey(u.Email)
		if emails[email] {
			errs = append(errs, fmt.Sprintf("users[%d]: duplicate email %q", i, email))
		}
		emails[email] = true
		business[email] = u.IsBusiness != nil && *u.IsBusiness
	}
	biz := make(map[int64]bool)
	for i := range ds.Cards {
		c := &ds.Cards[i]
		for _, msg := range c.Validate() {
			errs = append(errs, fmt.Sprintf("cards[%d]: %s", i, msg))
		}
		if !business[emailKey(c.Owner)] {
			errs = append(errs, fmt.Sprintf("cards[%d]: owner %q is not a seeded business user", i, c.Owner))
		}
		for _, like := range c.Likes {
			if !emails[emailKey(like)] {
				errs = append(errs, fmt.Sprintf("cards[%d]: like by unknown user %q", i, like))
			}
		}
		if c.BizNumber < 0 {
			errs = append(errs, fmt.Sprintf("cards[%d]: bizNumber must be positive", i))
		}
		if c.BizNumber > 0 {
			if biz[c.BizNumber] {
				errs = append(errs, fmt.Sprintf("cards[%d]: duplicate bizNumber %d", i, c.BizNumber))
			}
			biz[c.BizNumber] = true
		}
	}
	if len(errs) > 0 {
		return apperr.Validation(errs...)
	}
	return nil
}

// Seeder writes data sets into a Target.
type Seeder struct {
	target Target
	log    *zap.Logger
	cost   int
	now    func() time.Time
}

// New returns a Seeder. cost is the bcrypt cost used for passwords.
func New(target Target, log *zap.Logger, cost int) *Seeder {
	return &Seeder{target: target, log: log, cost: cost, now: func() time.Time { return time.Now().UTC() }}
}

// Run validates ds, wipes the target and inserts every user then every card.
func (s *Seeder) Run(ctx context.Context, ds *Dataset) (Result, error) {
	if err := ds.Validate(); err != nil {
		return Result{}, err
	}

	hashes := make([]string, len(ds.Users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range ds.Users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := bcrypt.GenerateFromPassword([]byte(ds.Users[i].Password), s.cost)
			if err != nil {
				return fmt.Errorf("hash password of %s: %w", ds.Users[i].Email, err)
			}
			hashes[i] = string(h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	write := func(t Target) error { return s.write(ctx, t, ds, hashes) }
	var err error
	if tx, ok := s.target.(Transactor); ok {
		err = tx.InTx(ctx, write)
	} else {
		err = write(s.target)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Users: len(ds.Users), Cards: len(ds.Cards)}, nil
}

// write wipes t and inserts every user then every card. Without a
// Transactor a failure leaves t partially seeded and the run must be repeated.
func (s *Seeder) write(ctx context.Context, t Target, ds *Dataset, hashes []string) error {
	if err := t.Reset(ctx); err != nil {
		return err
	}
	s.log.Warn("existing cards and users deleted")

	now := s.now()
	ids := make(map[string]string, len(ds.Users))
	for i := range ds.Users {
		u := ds.Users[i].NewUser()
		u.ID = uuid.NewString()
		u.PasswordHash = hashes[i]
		u.IsAdmin = ds.Users[i].IsAdmin
		u.CreatedAt, u.UpdatedAt = now, now
		if err := t.InsertUser(ctx, &u); err != nil {
			return fmt.Errorf("insert user %s: %w", u.Email, err)
		}
		ids[emailKey(u.Email)] = u.ID
	}
	s.log.Info("inserted users", zap.Int("count", len(ds.Users)))

	var highest int64
	for _, c := range ds.Cards {
		highest = max(highest, c.BizNumber)
	}
	for i := range ds.Cards {
		in := ds.Cards[i]
		card := in.NewCard()
		card.ID = uuid.NewString()
		card.OwnerID = ids[emailKey(in.Owner)]
		card.BizNumber = in.BizNumber
		if card.BizNumber == 0 {
			highest++
			card.BizNumber = highest
		}
		likes := make([]string, 0, len(in.Likes))
		for _, email := range in.Likes {
			likes = append(likes, ids[emailKey(email)])
		}
		card.Likes = models.NewLikeSet(likes...)
		card.CreatedAt, card.UpdatedAt = now, now
		if err := t.InsertCard(ctx, &card); err != nil {
			return fmt.Errorf("insert card %q: %w", card.Title, err)
		}
	}
	s.log.Info("inserted cards", zap.Int("count", len(ds.Cards)))
	return nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
