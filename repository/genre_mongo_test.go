package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoGenreRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	id := primitive.NewObjectID()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "E-Books"},
		{Key: "slug", Value: "e-books"},
		{Key: "imageUrl", Value: "https://res.cloudinary.com/demo/bookstore/e.png"},
		{Key: "createdAt", Value: created},
	}

	mt.Run("list", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "bookstore.genres", mtest.FirstBatch, doc),
			mtest.CreateCursorResponse(0, "bookstore.genres", mtest.NextBatch),
		)

		genres, err := NewMongoGenreRepository(mt.DB).List(context.Background())
		require.NoError(mt, err)
		require.Len(mt, genres, 1)
		assert.Equal(mt, id.Hex(), genres[0].ID)
		assert.Equal(mt, "E-Books", genres[0].Name)
		assert.Equal(mt, "https://res.cloudinary.com/demo/bookstore/e.png", genres[0].ImageURL)
		assert.True(mt, created.Equal(genres[0].CreatedAt))
	})

	mt.Run("get by name", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookstore.genres", mtest.FirstBatch, doc))

		g, err := NewMongoGenreRepository(mt.DB).GetByName(context.Background(), "e-books")
		require.NoError(mt, err)
		assert.Equal(mt, "E-Books", g.Name)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bookstore.genres", mtest.FirstBatch))

		_, err := NewMongoGenreRepository(mt.DB).GetByName(context.Background(), "horror")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized"}))

		_, err := NewMongoGenreRepository(mt.DB).List(context.Background())
		assert.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrNotFound)
	})
}
