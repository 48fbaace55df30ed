package models

import (
	"net/url"
	"strings"
)

// DefaultCardImageAlt is applied when a card image has no alternative text.
const DefaultCardImageAlt = "Business card image"

// Card is a business card in the directory.
type Card struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle"`
	Description string  `json:"description"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Web         string  `json:"web"`
	Image       Image   `json:"image"`
	Address     Address `json:"address"`
	// BizNumber is assigned once at creation and never changes.
	BizNumber int64 `json:"bizNumber"`
	// OwnerID references the creating user and never changes.
	OwnerID string  `json:"user_id"`
	Likes   LikeSet `json:"likes"`
	Timestamps
}

// OwnerSummary is the resolved owner reference of a card.
type OwnerSummary struct {
	ID    string `json:"_id"`
	Name  Name   `json:"name"`
	Email string `json:"email"`
}

// CardView is a card with its optionally resolved owner.
type CardView struct {
	Card
	Owner *OwnerSummary `json:"owner,omitempty"`
}

// CardInput is the payload of a card creation.
type CardInput struct {
	Title       string  `json:"title" yaml:"title"`
	Subtitle    string  `json:"subtitle" yaml:"subtitle"`
	Description string  `json:"description" yaml:"description"`
	Phone       string  `json:"phone" yaml:"phone"`
	Email       string  `json:"email" yaml:"email"`
	Web         string  `json:"web" yaml:"web"`
	Image       Image   `json:"image" yaml:"image"`
	Address     Address `json:"address" yaml:"address"`
}

// Validate returns one message per invalid field, or nil.
func (in *CardInput) Validate() []string {
	var errs []string
	required := []struct {
		name, value string
	}{
		{"title", in.Title},
		{"subtitle", in.Subtitle},
		{"description", in.Description},
		{"phone", in.Phone},
		{"email", in.Email},
		{"address.country", in.Address.Country},
		{"address.city", in.Address.City},
		{"address.street", in.Address.Street},
		{"address.zip", in.Address.Zip},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, `"`+f.name+`" is required`)
		}
	}
	if in.Address.HouseNumber <= 0 {
		errs = append(errs, `"address.houseNumber" must be a positive number`)
	}
	if in.Email != "" && !validEmail(in.Email) {
		errs = append(errs, `"email" must be a valid email`)
	}
	if in.Web != "" && !validURI(in.Web) {
		errs = append(errs, `"web" must be a valid uri`)
	}
	if in.Image.URL != "" && !validURI(in.Image.URL) {
		errs = append(errs, `"image.url" must be a valid uri`)
	}
	return errs
}

// NewCard builds an unsaved card from the input, applying defaults.
func (in *CardInput) NewCard() Card {
	c := Card{
		Title:       in.Title,
		Subtitle:    in.Subtitle,
		Description: in.Description,
		Phone:       in.Phone,
		Email:       in.Email,
		Web:         in.Web,
		Image:       in.Image,
		Address:     in.Address,
		Likes:       NewLikeSet(),
	}
	if c.Image.URL != "" && c.Image.Alt == "" {
		c.Image.Alt = DefaultCardImageAlt
	}
	return c
}

// CardPatch is the payload of a partial card update. Only non-nil fields are
// applied; bizNumber and owner cannot be expressed.
type CardPatch struct {
	Title       *string       `json:"title"`
	Subtitle    *string       `json:"subtitle"`
	Description *string       `json:"description"`
	Phone       *string       `json:"phone"`
	Email       *string       `json:"email"`
	Web         *string       `json:"web"`
	Image       *ImagePatch   `json:"image"`
	Address     *AddressPatch `json:"address"`
}

// Validate returns one message per invalid field, or nil.
func (p *CardPatch) Validate() []string {
	if p.Title == nil && p.Subtitle == nil && p.Description == nil && p.Phone == nil &&
		p.Email == nil && p.Web == nil && p.Image.empty() && p.Address.empty() {
		return []string{MsgEmptyPatch}
	}
	var errs []string
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"title", p.Title},
		{"subtitle", p.Subtitle},
		{"description", p.Description},
		{"phone", p.Phone},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			errs = append(errs, `"`+f.name+`" is not allowed to be empty`)
		}
	}
	if p.Email != nil && !validEmail(*p.Email) {
		errs = append(errs, `"email" must be a valid email`)
	}
	if p.Web != nil && *p.Web != "" && !validURI(*p.Web) {
		errs = append(errs, `"web" must be a valid uri`)
	}
	if p.Image != nil && p.Image.URL != nil && !validURI(*p.Image.URL) {
		errs = append(errs, `"image.url" must be a valid uri`)
	}
	if p.Address != nil && p.Address.HouseNumber != nil && *p.Address.HouseNumber <= 0 {
		errs = append(errs, `"address.houseNumber" must be a positive number`)
	}
	return errs
}

// Apply copies the present fields onto c.
func (p *CardPatch) Apply(c *Card) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Title, p.Title)
	set(&c.Subtitle, p.Subtitle)
	set(&c.Description, p.Description)
	set(&c.Phone, p.Phone)
	set(&c.Email, p.Email)
	set(&c.Web, p.Web)
	p.Image.apply(&c.Image)
	p.Address.apply(&c.Address)
}

func validURI(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
