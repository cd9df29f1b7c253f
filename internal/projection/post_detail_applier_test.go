package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/community/internal/projection/domain"
)

const detailPayload = `{
	"title": "Go generics in practice",
	"content": "A long look at type parameters.",
	"authorId": "author-1",
	"authorName": "alice",
	"categoryId": "category-1",
	"categoryName": "golang",
	"status": "published",
	"viewCount": 5,
	"likeCount": 2,
	"dislikeCount": 0,
	"commentCount": 1,
	"createdAt": 1700000000000,
	"updatedAt": 1700000000000
}`

func TestPostDetailApplierCanHandle(t *testing.T) {
	applier := NewPostDetailApplier(newMemIndex(), nil)

	tests := []struct {
		name    string
		event   Event
		want    bool
	}{
		{
			name:  "accepts PostUpdated",
			event: testEvent("e1", domain.EventTypePostUpdated, "p1", detailPayload),
			want:  true,
		},
		{
			name:  "accepts PostDeleted",
			event: testEvent("e1", domain.EventTypePostDeleted, "p1", `{}`),
			want:  true,
		},
		{
			name:  "accepts detail-shaped PostCreated",
			event: testEvent("e1", domain.EventTypePostCreated, "p1", detailPayload),
			want:  true,
		},
		{
			name:  "rejects counts-shaped PostCreated",
			event: testEvent("e1", domain.EventTypePostCreated, "p1", `{"viewCount":0}`),
			want:  false,
		},
		{
			name:  "rejects count events",
			event: testEvent("e1", domain.EventTypePostViewed, "p1", `{"viewCount":1}`),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applier.CanHandle(tt.event))
		})
	}
}

func TestPostDetailApplierApply(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the document from the snapshot", func(t *testing.T) {
		index := newMemIndex()
		applier := NewPostDetailApplier(index, nil)

		err := applier.Apply(ctx, testEvent("e1", domain.EventTypePostCreated, "p1", detailPayload))
		require.NoError(t, err)

		doc := index.posts["p1"]
		require.NotNil(t, doc)
		assert.Equal(t, "Go generics in practice", doc.Title)
		assert.Equal(t, "alice", doc.AuthorName)
		assert.Equal(t, "golang", doc.CategoryName)
		assert.Equal(t, int64(5), doc.ViewCount)
		assert.Equal(t, int64(2), doc.LikeCount)
		assert.Equal(t, int64(1), doc.CommentCount)
		assert.Equal(t, int64(1), doc.Version)
		assert.Equal(t, "e1", doc.LastEventID)
		assert.Equal(t, int64(1), doc.EventCount)
	})

	t.Run("update replaces the document and advances metadata", func(t *testing.T) {
		index := newMemIndex()
		applier := NewPostDetailApplier(index, nil)

		require.NoError(t, applier.Apply(ctx, testEvent("e1", domain.EventTypePostCreated, "p1", detailPayload)))

		updated := `{"title":"Go generics revisited","content":"v2","authorId":"author-1","authorName":"alice",
			"categoryId":"category-1","categoryName":"golang","status":"published",
			"viewCount":9,"likeCount":4,"dislikeCount":1,"commentCount":2,
			"createdAt":1700000000000,"updatedAt":1700000100000}`
		require.NoError(t, applier.Apply(ctx, testEvent("e2", domain.EventTypePostUpdated, "p1", updated)))

		doc := index.posts["p1"]
		require.NotNil(t, doc)
		assert.Equal(t, "Go generics revisited", doc.Title)
		assert.Equal(t, int64(9), doc.ViewCount)
		assert.Equal(t, int64(2), doc.Version)
		assert.Equal(t, "e2", doc.LastEventID)
		assert.Equal(t, int64(2), doc.EventCount)
	})

	t.Run("redelivery of the last event is a no-op", func(t *testing.T) {
		index := newMemIndex()
		applier := NewPostDetailApplier(index, nil)

		event := testEvent("e1", domain.EventTypePostCreated, "p1", detailPayload)
		require.NoError(t, applier.Apply(ctx, event))
		require.NoError(t, applier.Apply(ctx, event))

		doc := index.posts["p1"]
		require.NotNil(t, doc)
		assert.Equal(t, int64(1), doc.Version)
		assert.Equal(t, int64(1), doc.EventCount)
	})

	t.Run("delete removes the document and the reaction tally", func(t *testing.T) {
		index := newMemIndex()
		applier := NewPostDetailApplier(index, nil)

		require.NoError(t, applier.Apply(ctx, testEvent("e1", domain.EventTypePostCreated, "p1", detailPayload)))
		index.reactions["p1"] = &domain.ReactionCountDocument{ID: "p1", LikeCount: 2}

		require.NoError(t, applier.Apply(ctx, testEvent("e2", domain.EventTypePostDeleted, "p1", `{}`)))

		assert.NotContains(t, index.posts, "p1")
		assert.NotContains(t, index.reactions, "p1")
	})

	t.Run("delete of a missing document is not an error", func(t *testing.T) {
		applier := NewPostDetailApplier(newMemIndex(), nil)
		assert.NoError(t, applier.Apply(ctx, testEvent("e1", domain.EventTypePostDeleted, "gone", `{}`)))
	})

	t.Run("fails on a malformed snapshot", func(t *testing.T) {
		applier := NewPostDetailApplier(newMemIndex(), nil)
		err := applier.Apply(ctx, testEvent("e1", domain.EventTypePostUpdated, "p1", `not json`))
		assert.Error(t, err)
	})
}
