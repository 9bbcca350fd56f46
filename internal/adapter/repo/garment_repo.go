package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// GarmentRepositoryPG implements domain.GarmentStore backed by PostgreSQL.
type GarmentRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGarmentRepository creates a new GarmentRepositoryPG.
func NewGarmentRepository(pool *pgxpool.Pool) *GarmentRepositoryPG {
	return &GarmentRepositoryPG{pool: pool}
}

const garmentColumns = `id, name, category, price_cents, description, image_url, prompt_fragment, created_at`

// List returns the catalog, newest first.
func (r *GarmentRepositoryPG) List(ctx context.Context) ([]domain.Garment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+garmentColumns+` FROM garments ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGarments(rows)
}

// GetByIDs returns the garments for the given ids, preserving the caller's
// selection order.
func (r *GarmentRepositoryPG) GetByIDs(ctx context.Context, ids []string) ([]domain.Garment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+garmentColumns+` FROM garments WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found, err := collectGarments(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Garment, len(found))
	for _, g := range found {
		byID[g.ID] = g
	}
	ordered := make([]domain.Garment, 0, len(ids))
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		ordered = append(ordered, g)
	}
	return ordered, nil
}

// Insert stores a new catalog item and returns the persisted row.
func (r *GarmentRepositoryPG) Insert(ctx context.Context, garment *domain.Garment) (*domain.Garment, error) {
	if garment.ID == "" {
		garment.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO garments (id, name, category, price_cents, description, image_url, prompt_fragment)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+garmentColumns+`;
`, garment.ID, garment.Name, garment.Category, garment.PriceCents, garment.Description, garment.ImageURL, garment.PromptFragment)
	return scanGarment(row)
}

func collectGarments(rows pgx.Rows) ([]domain.Garment, error) {
	var garments []domain.Garment
	for rows.Next() {
		var g domain.Garment
		if err := rows.Scan(&g.ID, &g.Name, &g.Category, &g.PriceCents, &g.Description, &g.ImageURL, &g.PromptFragment, &g.CreatedAt); err != nil {
			return nil, err
		}
		garments = append(garments, g)
	}
	return garments, rows.Err()
}

func scanGarment(row pgx.Row) (*domain.Garment, error) {
	var g domain.Garment
	if err := row.Scan(&g.ID, &g.Name, &g.Category, &g.PriceCents, &g.Description, &g.ImageURL, &g.PromptFragment, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
