package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avetisov/investline/internal/app/models"
)

// ErrConfigNotFound lets callers fall back to a default value.
var ErrConfigNotFound = errors.New("config key not found")

type ConfigRepository interface {
	Get(ctx context.Context, key string) (*models.AdminConfig, error)
	Upsert(ctx context.Context, cfg *models.AdminConfig) error
	GetAll(ctx context.Context) (*[]models.AdminConfig, error)
}

type ConfigRepositoryImpl struct {
	db *sqlx.DB
}

func NewConfigRepository(db *sqlx.DB) *ConfigRepositoryImpl {
	return &ConfigRepositoryImpl{db: db}
}

func (cr *ConfigRepositoryImpl) Get(ctx context.Context, key string) (*models.AdminConfig, error) {
	query := `SELECT * FROM admin_configs WHERE key = $1;`
	cfg := models.AdminConfig{}
	err := cr.db.GetContext(ctx, &cfg, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("get config: %w", err)
	}
	return &cfg, nil
}

func (cr *ConfigRepositoryImpl) Upsert(ctx context.Context, cfg *models.AdminConfig) error {
	query := `INSERT INTO admin_configs (key, value, description, category, data_type, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (key) DO UPDATE
			  SET value = excluded.value, description = excluded.description,
			      category = excluded.category, data_type = excluded.data_type, updated_at = excluded.updated_at;`
	_, err := cr.db.ExecContext(ctx, query, cfg.Key, cfg.Value, cfg.Description, cfg.Category, cfg.DataType, time.Now())
	if err != nil {
		return fmt.Errorf("upsert config: %w", err)
	}
	return nil
}

func (cr *ConfigRepositoryImpl) GetAll(ctx context.Context) (*[]models.AdminConfig, error) {
	query := `SELECT * FROM admin_configs order by category, key;`
	configs := make([]models.AdminConfig, 0)
	err := cr.db.SelectContext(ctx, &configs, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &configs, nil
		}
		return nil, fmt.Errorf("read configs: %w", err)
	}
	return &configs, nil
}
