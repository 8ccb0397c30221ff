package repository

import (
	"context"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

// ClassRepository handles class data access.
type ClassRepository struct {
	db DBTX
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(db DBTX) *ClassRepository {
	return &ClassRepository{db: db}
}

// GetAll returns every class ordered by name.
func (r *ClassRepository) GetAll(ctx context.Context) ([]model.Class, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM classes ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// FindByName retrieves a class by name, ignoring case.
func (r *ClassRepository) FindByName(ctx context.Context, name string) (*model.Class, error) {
	c := &model.Class{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM classes WHERE LOWER(name) = LOWER($1)`,
		name).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// Create inserts a new class. A name clash yields ErrDuplicate.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO classes (name) VALUES ($1) RETURNING id, created_at, updated_at`,
		c.Name).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translate(err)
}

// Search runs an allow-listed keyword search over classes.
func (r *ClassRepository) Search(ctx context.Context, field, keyword string) ([]model.Class, error) {
	query, args, err := classSearch.build(field, keyword)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := []model.Class{}
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
