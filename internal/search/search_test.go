package search

import (
	"testing"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pizza = &models.Card{
	Title:   "Pizza Palace",
	Email:   "orders@napoli.example",
	Address: models.Address{City: "Tel Aviv"},
}

func TestMatcher_CaseInsensitiveOr(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"upper case term", Query{Term: "PIZZA", Fields: []string{"title", "email"}}, true},
		{"prefix", Query{Term: "piz", Fields: []string{"title"}}, true},
		{"field not requested", Query{Term: "piz", Fields: []string{"email"}}, false},
		{"second field matches", Query{Term: "NAPOLI", Fields: []string{"title", "email"}}, true},
		{"nested field", Query{Term: "aviv", Fields: []string{"address.city"}}, true},
		{"no match", Query{Term: "sushi", Fields: []string{"title", "email"}}, false},
		{"metacharacters are literal", Query{Term: "pizza.palace", Fields: []string{"title"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := tt.query.Matcher()
			require.NoError(t, err)
			assert.Equal(t, tt.want, match(pizza))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		ok    bool
	}{
		{"valid", Query{Term: "a", Fields: []string{"title"}}, true},
		{"empty term", Query{Term: " ", Fields: []string{"title"}}, false},
		{"no fields", Query{Term: "a"}, false},
		{"unknown field", Query{Term: "a", Fields: []string{"password"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestWhere(t *testing.T) {
	q := Query{Term: "a+b", Fields: []string{"title", "address.city", "title"}}
	clause, args, err := q.Where(1)
	require.NoError(t, err)
	assert.Equal(t, "(title ~* $1 OR address_city ~* $1)", clause)
	assert.Equal(t, []any{`a\+b`}, args)

	_, _, err = Query{Term: "a", Fields: []string{"nope"}}.Where(1)
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	fs := Fields()
	assert.Contains(t, fs, "title")
	assert.NotContains(t, fs, "bizNumber")
	assert.IsNonDecreasing(t, fs)
}
