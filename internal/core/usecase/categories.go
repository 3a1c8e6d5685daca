package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// DefaultCategories is the category table seeded into an empty store.
var DefaultCategories = []model.Category{
	{Name: "Music", Color: "purple"},
	{Name: "Sports", Color: "orange"},
	{Name: "Food & Drink", Color: "green"},
	{Name: "Arts", Color: "pink"},
	{Name: "Community", Color: "blue"},
	{Name: "Business", Color: "gray"},
}

// CategoryRegistry is the read-only lookup table of event categories. It is loaded once at startup.
type CategoryRegistry struct {
	all    []model.Category
	byID   map[uuid.UUID]model.Category
	bySlug map[string]model.Category
}

// LoadCategoryRegistry loads the categories from the repository, seeding DefaultCategories first if
// the repository is empty.
func LoadCategoryRegistry(ctx context.Context, repository ports.CategoryRepository) (*CategoryRegistry, error) {
	categories, err := repository.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	if len(categories) > 0 {
		return NewCategoryRegistry(categories), nil
	}

	for _, c := range DefaultCategories {
		category := &model.Category{ID: uuid.New(), Name: c.Name, Slug: Slugify(c.Name), Color: c.Color}
		if err := repository.SaveCategory(ctx, category); err != nil {
			return nil, fmt.Errorf("error seeding category %q: %w", c.Name, err)
		}
	}

	categories, err = repository.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing seeded categories: %w", err)
	}
	return NewCategoryRegistry(categories), nil
}

// NewCategoryRegistry builds a registry over a fixed set of categories.
func NewCategoryRegistry(categories []model.Category) *CategoryRegistry {
	r := &CategoryRegistry{
		all:    make([]model.Category, len(categories)),
		byID:   make(map[uuid.UUID]model.Category, len(categories)),
		bySlug: make(map[string]model.Category, len(categories)),
	}
	copy(r.all, categories)
	for _, c := range categories {
		r.byID[c.ID] = c
		r.bySlug[c.Slug] = c
	}
	return r
}

// List returns all categories.
func (r *CategoryRegistry) List() []model.Category {
	out := make([]model.Category, len(r.all))
	copy(out, r.all)
	return out
}

// ByID returns the category with the given id.
func (r *CategoryRegistry) ByID(id uuid.UUID) (model.Category, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// BySlug returns the category with the given slug.
func (r *CategoryRegistry) BySlug(slug string) (model.Category, bool) {
	c, ok := r.bySlug[slug]
	return c, ok
}

// Len is the number of categories.
func (r *CategoryRegistry) Len() int {
	return len(r.all)
}
