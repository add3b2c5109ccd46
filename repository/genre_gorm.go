package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/MrN7King/BookstorePhase1-sub001/models"
)

type gormGenreRepository struct {
	db *gorm.DB
}

// NewGormGenreRepository returns a GenreRepository backed by a SQL database.
func NewGormGenreRepository(db *gorm.DB) GenreRepository {
	return &gormGenreRepository{db: db}
}

func (r *gormGenreRepository) List(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

func (r *gormGenreRepository) GetByName(ctx context.Context, name string) (*models.Genre, error) {
	var genre models.Genre
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&genre).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get genre by name: %w", err)
	}
	return &genre, nil
}
