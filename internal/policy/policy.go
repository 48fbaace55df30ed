// Package policy decides whether an identity may perform an action on a
// resource. Every rule lives in a single table; evaluation is pure.
package policy

import (
	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/models"
)

// Action names an operation subject to authorization.
type Action string

const (
	ListCards   Action = "list-cards"
	ReadCard    Action = "read-card"
	SearchCards Action = "search-cards"
	CreateCard  Action = "create-card"
	UpdateCard  Action = "update-card"
	DeleteCard  Action = "delete-card"
	ListMyCards Action = "list-my-cards"
	LikeCard    Action = "like-card"

	ListUsers   Action = "list-users"
	ReadUser    Action = "read-user"
	CreateUser  Action = "create-user"
	UpdateUser  Action = "update-user"
	DeleteUser  Action = "delete-user"
	SetBusiness Action = "set-business"
)

// Reason explains a denial.
type Reason string

const (
	// Unauthenticated means the action requires a logged-in identity.
	Unauthenticated Reason = "unauthenticated"
	// Forbidden means the identity is known but lacks the required grant.
	Forbidden Reason = "forbidden"
	// UnknownAction means no rule exists for the action.
	UnknownAction Reason = "unknown_action"
)

// Resource is the target of an action. OwnerID is the card owner for card
// actions and the target user id for user actions.
type Resource struct {
	OwnerID string
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
	Action  Action
}

type grant int

const (
	grantLoggedIn grant = iota
	grantBusiness
	grantAdmin
	grantOwner
)

type rule struct {
	// public actions need no identity at all.
	public bool
	// anyOf lists grants of which one suffices.
	anyOf []grant
	// message is reported on a forbidden decision.
	message string
}

var rules = map[Action]rule{
	ListCards:   {public: true},
	ReadCard:    {public: true},
	SearchCards: {public: true},
	CreateCard:  {anyOf: []grant{grantBusiness}, message: "only business users can create cards"},
	UpdateCard:  {anyOf: []grant{grantOwner}, message: "you are not authorized to edit this card"},
	DeleteCard:  {anyOf: []grant{grantOwner, grantAdmin}, message: "you are not authorized to delete this card"},
	ListMyCards: {anyOf: []grant{grantLoggedIn}},
	LikeCard:    {anyOf: []grant{grantLoggedIn}},

	CreateUser:  {public: true},
	ListUsers:   {anyOf: []grant{grantAdmin}, message: "admin role required"},
	ReadUser:    {anyOf: []grant{grantAdmin, grantOwner}, message: "you are not authorized to view this user"},
	UpdateUser:  {anyOf: []grant{grantOwner}, message: "you can only edit your own profile"},
	DeleteUser:  {anyOf: []grant{grantAdmin, grantOwner}, message: "you are not authorized to delete this user"},
	SetBusiness: {anyOf: []grant{grantOwner}, message: "you can only change your own business status"},
}

func (g grant) holds(id models.Identity, res Resource) bool {
	switch g {
	case grantLoggedIn:
		return true
	case grantBusiness:
		return id.IsBusiness
	case grantAdmin:
		return id.IsAdmin
	case grantOwner:
		return res.OwnerID != "" && id.ID == res.OwnerID
	}
	return false
}

// Evaluate decides whether id may perform action on res. Public actions are
// always allowed; every other action first requires authentication.
func Evaluate(id models.Identity, action Action, res Resource) Decision {
	r, ok := rules[action]
	if !ok {
		return Decision{Reason: UnknownAction, Action: action}
	}
	if r.public {
		return Decision{Allowed: true, Action: action}
	}
	if !id.Authenticated() {
		return Decision{Reason: Unauthenticated, Action: action}
	}
	for _, g := range r.anyOf {
		if g.holds(id, res) {
			return Decision{Allowed: true, Action: action}
		}
	}
	return Decision{Reason: Forbidden, Action: action}
}

// Err converts a denial into an application error; it returns nil when the
// decision allows the action.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case Unauthenticated:
		return apperr.Unauthenticated("login required")
	case Forbidden:
		msg := rules[d.Action].message
		if msg == "" {
			msg = "access denied"
		}
		return apperr.Forbidden(msg)
	}
	return apperr.Internal("no authorization rule for "+string(d.Action), nil)
}

// Check evaluates and converts the decision in one step.
func Check(id models.Identity, action Action, res Resource) error {
	return Evaluate(id, action, res).Err()
}
