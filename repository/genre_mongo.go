package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrN7King/BookstorePhase1-sub001/models"
)

const genreCollection = "genres"

// genreDocument is the stored shape of a genre in MongoDB.
type genreDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Slug        string             `bson:"slug,omitempty"`
	Description string             `bson:"description,omitempty"`
	ImageURL    string             `bson:"imageUrl,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt,omitempty"`
}

func (d genreDocument) toModel() models.Genre {
	return models.Genre{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Slug:        d.Slug,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type mongoGenreRepository struct {
	coll *mongo.Collection
}

// NewMongoGenreRepository returns a GenreRepository backed by the "genres" collection.
func NewMongoGenreRepository(db *mongo.Database) GenreRepository {
	return &mongoGenreRepository{coll: db.Collection(genreCollection)}
}

func (r *mongoGenreRepository) List(ctx context.Context) ([]models.Genre, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer cur.Close(ctx)

	var docs []genreDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	genres := make([]models.Genre, 0, len(docs))
	for _, d := range docs {
		genres = append(genres, d.toModel())
	}
	return genres, nil
}

func (r *mongoGenreRepository) GetByName(ctx context.Context, name string) (*models.Genre, error) {
	filter := bson.M{"name": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(name)) + "$",
		Options: "i",
	}}
	var doc genreDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get genre by name: %w", err)
	}
	genre := doc.toModel()
	return &genre, nil
}
