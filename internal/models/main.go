// Package models defines the core data structures for business cards, users
// and the identity of the caller.
package models

import "time"

// Image is a picture reference with its alternative text.
type Image struct {
	URL string `json:"url" yaml:"url"`
	Alt string `json:"alt" yaml:"alt"`
}

// Address is a postal address shared by cards and users.
type Address struct {
	State       string `json:"state" yaml:"state"`
	Country     string `json:"country" yaml:"country"`
	City        string `json:"city" yaml:"city"`
	Street      string `json:"street" yaml:"street"`
	HouseNumber int    `json:"houseNumber" yaml:"houseNumber"`
	Zip         string `json:"zip" yaml:"zip"`
}

// ImagePatch carries the image fields present in a partial update.
type ImagePatch struct {
	URL *string `json:"url"`
	Alt *string `json:"alt"`
}

// AddressPatch carries the address fields present in a partial update.
type AddressPatch struct {
	State       *string `json:"state"`
	Country     *string `json:"country"`
	City        *string `json:"city"`
	Street      *string `json:"street"`
	HouseNumber *int    `json:"houseNumber"`
	Zip         *string `json:"zip"`
}

func (p *ImagePatch) empty() bool {
	return p == nil || (p.URL == nil && p.Alt == nil)
}

func (p *ImagePatch) apply(img *Image) {
	if p == nil {
		return
	}
	if p.URL != nil {
		img.URL = *p.URL
	}
	if p.Alt != nil {
		img.Alt = *p.Alt
	}
}

func (p *AddressPatch) empty() bool {
	return p == nil || (p.State == nil && p.Country == nil && p.City == nil &&
		p.Street == nil && p.HouseNumber == nil && p.Zip == nil)
}

func (p *AddressPatch) apply(a *Address) {
	if p == nil {
		return
	}
	if p.State != nil {
		a.State = *p.State
	}
	if p.Country != nil {
		a.Country = *p.Country
	}
	if p.City != nil {
		a.City = *p.City
	}
	if p.Street != nil {
		a.Street = *p.Street
	}
	if p.HouseNumber != nil {
		a.HouseNumber = *p.HouseNumber
	}
	if p.Zip != nil {
		a.Zip = *p.Zip
	}
}

// Timestamps records creation and last modification times.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
