package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-pg/pg/v10"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
)

// ListCategories lists all categories ordered by name.
func (p *PostgresDB) ListCategories(ctx context.Context) ([]model.Category, error) {
	var dbCategories []categoryDB
	if err := p.db.ModelContext(ctx, &dbCategories).Order("name ASC").Select(); err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, fmt.Errorf("error selecting categories: %w", err)
	}
	categories := make([]model.Category, len(dbCategories))
	for i, c := range dbCategories {
		categories[i] = model.Category{ID: c.ID, Name: c.Name, Slug: c.Slug, Color: c.Color}
	}
	return categories, nil
}

// SaveCategory saves a new category.
func (p *PostgresDB) SaveCategory(ctx context.Context, category *model.Category) error {
	if category == nil {
		return errors.New("nil category passed to save method")
	}
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	dbCategory := &categoryDB{ID: category.ID, Name: category.Name, Slug: category.Slug, Color: category.Color}
	if _, err := p.db.ModelContext(ctx, dbCategory).Insert(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("error inserting category: %w", err)
	}
	return nil
}

type categoryDB struct {
	tableName struct{} `pg:"gatherly.categories"`

	ID    uuid.UUID `pg:"id,pk,type:uuid"`
	Name  string    `pg:"name"`
	Slug  string    `pg:"slug"`
	Color string    `pg:"color"`
}
