package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MrN7King/BookstorePhase1-sub001/repository"
	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

// GenreController serves the read-only genre catalog.
type GenreController struct {
	repo repository.GenreRepository
}

// NewGenreController creates a new GenreController instance.
func NewGenreController(repo repository.GenreRepository) *GenreController {
	return &GenreController{repo: repo}
}

// ListGenres returns every genre ordered by name.
func (g *GenreController) ListGenres(ctx *gin.Context) {
	genres, err := g.repo.List(ctx.Request.Context())
	if err != nil {
		utils.ErrorDetails(ctx, http.StatusInternalServerError, "Failed to fetch genres", err.Error())
		return
	}
	utils.Success(ctx, genres)
}

// GetGenre returns one genre by case-insensitive name.
func (g *GenreController) GetGenre(ctx *gin.Context) {
	name := strings.TrimSpace(ctx.Param("name"))
	if name == "" {
		utils.Error(ctx, http.StatusNotFound, "Genre not found")
		return
	}
	genre, err := g.repo.GetByName(ctx.Request.Context(), name)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, "Genre not found")
		return
	}
	if err != nil {
		utils.ErrorDetails(ctx, http.StatusInternalServerError, "Failed to fetch genres", err.Error())
		return
	}
	utils.Success(ctx, genre)
}
