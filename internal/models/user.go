package models

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

// DefaultProfileImageAlt is applied when a user image has no alternative text.
const DefaultProfileImageAlt = "Profile image"

// MsgEmptyPatch is reported for partial updates carrying no known field.
const MsgEmptyPatch = "The request's body must include at-least one valid key"

var phonePattern = regexp.MustCompile(`^05\d-?\d{7}$`)

// Name is a user's full name.
type Name struct {
	First  string `json:"first" yaml:"first"`
	Middle string `json:"middle" yaml:"middle"`
	Last   string `json:"last" yaml:"last"`
}

// User is a registered account.
type User struct {
	ID           string  `json:"_id"`
	Name         Name    `json:"name"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"-"`
	Image        Image   `json:"image"`
	Address      Address `json:"address"`
	IsBusiness   bool    `json:"isBusiness"`
	IsAdmin      bool    `json:"isAdmin"`
	Timestamps
}

// Identity returns the identity a session of u acts as.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, IsBusiness: u.IsBusiness, IsAdmin: u.IsAdmin}
}

// Summary returns the public owner summary of u.
func (u *User) Summary() *OwnerSummary {
	return &OwnerSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserInput is the payload of a user registration.
type UserInput struct {
	Name       Name    `json:"name" yaml:"name"`
	Phone      string  `json:"phone" yaml:"phone"`
	Email      string  `json:"email" yaml:"email"`
	Password   string  `json:"password" yaml:"password"`
	Image      Image   `json:"image" yaml:"image"`
	Address    Address `json:"address" yaml:"address"`
	IsBusiness *bool   `json:"isBusiness" yaml:"isBusiness"`
}

// Validate returns one message per invalid field, or nil.
func (in *UserInput) Validate() []string {
	var errs []string
	if strings.TrimSpace(in.Name.First) == "" {
		errs = append(errs, `"name.first" is required`)
	}
	if strings.TrimSpace(in.Name.Last) == "" {
		errs = append(errs, `"name.last" is required`)
	}
	if !phonePattern.MatchString(in.Phone) {
		errs = append(errs, `"phone" must be a valid cellphone number`)
	}
	if !validEmail(in.Email) {
		errs = append(errs, `"email" must be a valid email`)
	}
	if !ValidPassword(in.Password) {
		errs = append(errs, `"password" must be a valid password`)
	}
	if !validURI(in.Image.URL) {
		errs = append(errs, `"image.url" must be a valid uri`)
	}
	for _, f := range [][2]string{
		{"address.country", in.Address.Country},
		{"address.city", in.Address.City},
		{"address.street", in.Address.Street},
		{"address.zip", in.Address.Zip},
	} {
		if strings.TrimSpace(f[1]) == "" {
			errs = append(errs, `"`+f[0]+`" is required`)
		}
	}
	if in.Address.HouseNumber <= 0 {
		errs = append(errs, `"address.houseNumber" must be a positive number`)
	}
	if in.IsBusiness == nil {
		errs = append(errs, `"isBusiness" is required`)
	}
	return errs
}

// NewUser builds an unsaved user from the input. The password hash is set by
// the caller.
func (in *UserInput) NewUser() User {
	u := User{
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Image:   in.Image,
		Address: in.Address,
	}
	if in.IsBusiness != nil {
		u.IsBusiness = *in.IsBusiness
	}
	if u.Image.Alt == "" {
		u.Image.Alt = DefaultProfileImageAlt
	}
	return u
}

// UserPatch is the payload of a partial profile update.
type UserPatch struct {
	Phone    *string       `json:"phone"`
	Password *string       `json:"password"`
	Image    *ImagePatch   `json:"image"`
	Address  *AddressPatch `json:"address"`
}

// Validate returns one message per invalid field, or nil.
func (p *UserPatch) Validate() []string {
	if p.Phone == nil && p.Password == nil && p.Image.empty() && p.Address.empty() {
		return []string{MsgEmptyPatch}
	}
	var errs []string
	if p.Phone != nil && !phonePattern.MatchString(*p.Phone) {
		errs = append(errs, `"phone" must be a valid cellphone number`)
	}
	if p.Password != nil && !ValidPassword(*p.Password) {
		errs = append(errs, `"password" must be a valid password`)
	}
	if p.Image != nil && p.Image.URL != nil && !validURI(*p.Image.URL) {
		errs = append(errs, `"image.url" must be a valid uri`)
	}
	if p.Address != nil && p.Address.HouseNumber != nil && *p.Address.HouseNumber <= 0 {
		errs = append(errs, `"address.houseNumber" must be a positive number`)
	}
	return errs
}

// Apply copies the present profile fields onto u. The password is handled by
// the caller since it must be hashed.
func (p *UserPatch) Apply(u *User) {
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	p.Image.apply(&u.Image)
	p.Address.apply(&u.Address)
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidPassword requires at least seven characters with an upper case letter,
// a lower case letter, a digit and one of #?!@$ %^&*-.
func ValidPassword(pw string) bool {
	if len(pw) < 7 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("#?!@$ %^&*-", r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
