// Package repository provides read access to the genre catalog.
package repository

import (
	"context"
	"errors"

	"github.com/MrN7King/BookstorePhase1-sub001/models"
)

// ErrNotFound is returned when a genre does not exist.
var ErrNotFound = errors.New("genre not found")

// GenreRepository lists genres and looks them up by name.
type GenreRepository interface {
	List(ctx context.Context) ([]models.Genre, error)
	// GetByName matches the name case-insensitively.
	GetByName(ctx context.Context, name string) (*models.Genre, error)
}
