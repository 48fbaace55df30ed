// Package search matches a term against a chosen set of card text fields.
// Matching is a case-insensitive substring match per field, OR-combined
// across fields.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/models"
)

type field struct {
	column string
	value  func(*models.Card) string
}

var fields = map[string]field{
	"title":           {"title", func(c *models.Card) string { return c.Title }},
	"subtitle":        {"subtitle", func(c *models.Card) string { return c.Subtitle }},
	"description":     {"description", func(c *models.Card) string { return c.Description }},
	"phone":           {"phone", func(c *models.Card) string { return c.Phone }},
	"email":           {"email", func(c *models.Card) string { return c.Email }},
	"web":             {"web", func(c *models.Card) string { return c.Web }},
	"image.url":       {"image_url", func(c *models.Card) string { return c.Image.URL }},
	"image.alt":       {"image_alt", func(c *models.Card) string { return c.Image.Alt }},
	"address.state":   {"address_state", func(c *models.Card) string { return c.Address.State }},
	"address.country": {"address_country", func(c *models.Card) string { return c.Address.Country }},
	"address.city":    {"address_city", func(c *models.Card) string { return c.Address.City }},
	"address.street":  {"address_street", func(c *models.Card) string { return c.Address.Street }},
	"address.zip":     {"address_zip", func(c *models.Card) string { return c.Address.Zip }},
}

// Fields returns the searchable field names in sorted order.
func Fields() []string {
	out := make([]string, 0, len(fields))
	for name := range fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Query is a search request.
type Query struct {
	Term   string   `json:"searchTerm"`
	Fields []string `json:"searchFields"`
}

// Validate rejects an empty term, an empty field list and unknown fields.
func (q Query) Validate() error {
	var errs []string
	if strings.TrimSpace(q.Term) == "" {
		errs = append(errs, `"searchTerm" is not allowed to be empty`)
	}
	if len(q.Fields) == 0 {
		errs = append(errs, `"searchFields" must contain at least 1 item`)
	}
	for _, name := range q.Fields {
		if _, ok := fields[name]; !ok {
			errs = append(errs, fmt.Sprintf(`"searchFields" does not allow %q`, name))
		}
	}
	if len(errs) > 0 {
		return apperr.Validation(errs...)
	}
	return nil
}

// pattern is the term as a literal, case-insensitive regular expression.
func (q Query) pattern() string {
	return regexp.QuoteMeta(q.Term)
}

func (q Query) distinctFields() []field {
	seen := make(map[string]bool, len(q.Fields))
	out := make([]field, 0, len(q.Fields))
	for _, name := range q.Fields {
		f, ok := fields[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, f)
	}
	return out
}

// Matcher returns a predicate for in-memory evaluation of a valid query.
func (q Query) Matcher() (func(*models.Card) bool, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	re, err := regexp.Compile("(?i)" + q.pattern())
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf(`"searchTerm" is invalid: %v`, err))
	}
	fs := q.distinctFields()
	return func(c *models.Card) bool {
		for _, f := range fs {
			if re.MatchString(f.value(c)) {
				return true
			}
		}
		return false
	}, nil
}

// Where renders the query as a PostgreSQL condition using the case-insensitive
// regular expression operator. The term is bound as the placeholder $argPos.
func (q Query) Where(argPos int) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	fs := q.distinctFields()
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = fmt.Sprintf("%s ~* $%d", f.column, argPos)
	}
	return "(" + strings.Join(parts, " OR ") + ")", []any{q.pattern()}, nil
}
