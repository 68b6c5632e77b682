// Package email exposes the order history fragments as placeholder tags for transactional
// emails and sends staff notifications built from them.
package email

import (
	"context"
	"fmt"
	"strings"
)

// Fragments renders the per-order HTML fragments the tags expand to.
type Fragments interface {
	BrowsingHistoryHTML(ctx context.Context, orderID int64) (string, error)
	PurchaseHistoryHTML(ctx context.Context, orderID int64) (string, error)
}

type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	heading     string
	render      func(ctx context.Context, orderID int64) (string, error)
}

// Placeholder is the token replaced in templates, e.g. "{browsing_history}".
func (t Tag) Placeholder() string {
	return "{" + t.Name + "}"
}

// Registry holds the tags available to email templates.
type Registry struct {
	tags []Tag
}

func NewRegistry(f Fragments) *Registry {
	return &Registry{tags: []Tag{
		{
			Name:        "browsing_history",
			Description: "Display the customer's browsing history prior to this transaction.",
			heading:     "Customer Browsing History",
			render:      f.BrowsingHistoryHTML,
		},
		{
			Name:        "purchase_history",
			Description: "Display the customer's purchase history and total lifetime value.",
			heading:     "Customer Purchase History",
			render:      f.PurchaseHistoryHTML,
		},
	}}
}

func (r *Registry) Tags() []Tag {
	return append([]Tag(nil), r.tags...)
}

// Render replaces every registered placeholder found in tmpl with its fragment for orderID.
// Fragments are only rendered for placeholders the template uses.
func (r *Registry) Render(ctx context.Context, tmpl string, orderID int64) (string, error) {
	pairs := make([]string, 0, 2*len(r.tags))
	for _, t := range r.tags {
		if !strings.Contains(tmpl, t.Placeholder()) {
			continue
		}
		body, err := t.render(ctx, orderID)
		if err != nil {
			return "", fmt.Errorf("render tag %s: %w", t.Name, err)
		}
		pairs = append(pairs, t.Placeholder(), "<h2>"+t.heading+"</h2>"+body)
	}
	if len(pairs) == 0 {
		return tmpl, nil
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}
