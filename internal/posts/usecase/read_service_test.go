package usecase

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/posts/domain"
	projectionDomain "github.com/allisson/community/internal/projection/domain"
	"github.com/allisson/community/internal/search"
)

// fakeIndex is an in-memory search.Index good enough for read-path tests.
type fakeIndex struct {
	docs map[string]*projectionDomain.PostDocument
	err  error
}

func newFakeIndex(docs ...*projectionDomain.PostDocument) *fakeIndex {
	index := &fakeIndex{docs: make(map[string]*projectionDomain.PostDocument)}
	for _, doc := range docs {
		index.docs[doc.ID] = doc
	}
	return index
}

func (f *fakeIndex) UpsertPost(_ context.Context, doc *projectionDomain.PostDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) PatchPostCounts(
	_ context.Context, _, _ string, _ time.Time, _ map[string]int64,
) (search.PatchOutcome, error) {
	return search.PatchApplied, f.err
}

func (f *fakeIndex) DeletePost(_ context.Context, id string) error {
	delete(f.docs, id)
	return f.err
}

func (f *fakeIndex) GetPost(_ context.Context, id string) (*projectionDomain.PostDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "post document not found")
	}
	return doc, nil
}

func (f *fakeIndex) SearchPosts(_ context.Context, query search.PostQuery) (*search.PostPage, error) {
	if f.err != nil {
		return nil, f.err
	}

	var items []*projectionDomain.PostDocument
	for _, doc := range f.docs {
		if query.Status != "" && doc.Status != query.Status {
			continue
		}
		if query.AuthorID != "" && doc.AuthorID != query.AuthorID {
			continue
		}
		if query.CategoryID != "" && doc.CategoryID != query.CategoryID {
			continue
		}
		if query.Keyword != "" {
			needle := strings.ToLower(query.Keyword)
			if !strings.Contains(strings.ToLower(doc.Title), needle) &&
				!strings.Contains(strings.ToLower(doc.Content), needle) {
				continue
			}
		}
		items = append(items, doc)
	}

	sort.Slice(items, func(i, j int) bool {
		var vi, vj int64
		switch query.SortField {
		case search.SortByViews:
			vi, vj = items[i].ViewCount, items[j].ViewCount
		case search.SortByLikes:
			vi, vj = items[i].LikeCount, items[j].LikeCount
		default:
			vi, vj = items[i].CreatedAt, items[j].CreatedAt
		}
		if query.SortOrder == "asc" {
			return vi < vj
		}
		return vi > vj
	})

	total := len(items)
	if query.Limit > 0 {
		items = slicePage(items, query.Offset, query.Limit)
	}
	return &search.PostPage{Items: items, Total: total}, nil
}

func (f *fakeIndex) UpsertReactionCount(_ context.Context, _ *projectionDomain.ReactionCountDocument) error {
	return f.err
}

func (f *fakeIndex) PatchReactionCounts(
	_ context.Context, _, _ string, _ time.Time, _ map[string]int64,
) (search.PatchOutcome, error) {
	return search.PatchApplied, f.err
}

func (f *fakeIndex) GetReactionCount(_ context.Context, _ string) (*projectionDomain.ReactionCountDocument, error) {
	return nil, apperrors.Wrap(apperrors.ErrNotFound, "reaction count not found")
}

func (f *fakeIndex) DeleteReactionCount(_ context.Context, _ string) error {
	return f.err
}

func (f *fakeIndex) Ping(_ context.Context) error {
	return f.err
}

func publishedDoc(id uuid.UUID, title string, likes, views int64, createdAt time.Time) *projectionDomain.PostDocument {
	return &projectionDomain.PostDocument{
		ID:        id.String(),
		Title:     title,
		Status:    string(domain.PostStatusPublished),
		LikeCount: likes,
		ViewCount: views,
		CreatedAt: createdAt.UnixMilli(),
	}
}

func TestReadServiceGetPost(t *testing.T) {
	ctx := context.Background()
	postID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	t.Run("serves from the index when the document exists", func(t *testing.T) {
		index := newFakeIndex(publishedDoc(postID, "Post A", 1, 2, now))
		postRepo := &MockPostRepository{}
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		result, err := service.GetPost(ctx, postID, false)
		require.NoError(t, err)
		assert.Equal(t, SourceIndex, result.Source)
		assert.Equal(t, "Post A", result.Document.Title)
		postRepo.AssertNotCalled(t, "GetDetail")
	})

	t.Run("falls back to the database on index miss with the same shape", func(t *testing.T) {
		index := newFakeIndex()
		postRepo := &MockPostRepository{}
		postRepo.On("GetDetail", ctx, postID).Return(&domain.PostDetail{
			Post: domain.Post{
				ID:        postID,
				AuthorID:  uuid.Must(uuid.NewV7()),
				Title:     "Post A",
				Status:    domain.PostStatusPublished,
				ViewCount: 5,
				CreatedAt: now,
				UpdatedAt: now,
			},
			AuthorName:   "alice",
			LikeCount:    3,
			CommentCount: 2,
		}, nil)
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		result, err := service.GetPost(ctx, postID, false)
		require.NoError(t, err)
		assert.Equal(t, SourceDatabase, result.Source)
		assert.Equal(t, postID.String(), result.Document.ID)
		assert.Equal(t, "Post A", result.Document.Title)
		assert.Equal(t, "alice", result.Document.AuthorName)
		assert.Equal(t, int64(5), result.Document.ViewCount)
		assert.Equal(t, int64(3), result.Document.LikeCount)
		assert.Equal(t, int64(2), result.Document.CommentCount)
	})

	t.Run("falls back when the index is down", func(t *testing.T) {
		index := newFakeIndex()
		index.err = apperrors.New("connection refused")
		postRepo := &MockPostRepository{}
		postRepo.On("GetDetail", ctx, postID).Return(&domain.PostDetail{
			Post: domain.Post{ID: postID, Status: domain.PostStatusPublished},
		}, nil)
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		result, err := service.GetPost(ctx, postID, false)
		require.NoError(t, err)
		assert.Equal(t, SourceDatabase, result.Source)
	})

	t.Run("forceDatabase skips the index", func(t *testing.T) {
		index := newFakeIndex(publishedDoc(postID, "stale", 0, 0, now))
		postRepo := &MockPostRepository{}
		postRepo.On("GetDetail", ctx, postID).Return(&domain.PostDetail{
			Post: domain.Post{ID: postID, Title: "fresh", Status: domain.PostStatusPublished},
		}, nil)
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		result, err := service.GetPost(ctx, postID, true)
		require.NoError(t, err)
		assert.Equal(t, SourceDatabase, result.Source)
		assert.Equal(t, "fresh", result.Document.Title)
	})

	t.Run("not found on both sources", func(t *testing.T) {
		index := newFakeIndex()
		postRepo := &MockPostRepository{}
		postRepo.On("GetDetail", ctx, postID).
			Return(nil, apperrors.Wrap(apperrors.ErrNotFound, "post not found"))
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		_, err := service.GetPost(ctx, postID, false)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("deleted posts are not served from the database", func(t *testing.T) {
		index := newFakeIndex()
		postRepo := &MockPostRepository{}
		postRepo.On("GetDetail", ctx, postID).Return(&domain.PostDetail{
			Post: domain.Post{ID: postID, Status: domain.PostStatusDeleted},
		}, nil)
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		_, err := service.GetPost(ctx, postID, false)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestReadServiceSearchPosts(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("popular sort ranks by weighted score with age discount", func(t *testing.T) {
		hot := publishedDoc(uuid.Must(uuid.NewV7()), "hot", 20, 20, now.Add(-24*time.Hour))
		discounted := publishedDoc(uuid.Must(uuid.NewV7()), "discounted", 20, 20, now.Add(-40*24*time.Hour))
		index := newFakeIndex(hot, discounted)
		service := NewReadService(index, &MockPostRepository{}, 48*time.Hour, 10, nil)

		result, err := service.SearchPosts(ctx, domain.SearchFilter{
			SortField: domain.SortFieldPopular,
		}, false)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "hot", result.Items[0].Title)
		assert.Equal(t, "discounted", result.Items[1].Title)
		assert.Equal(t, SourceIndex, result.Source)
	})

	t.Run("keyword without sort orders by relevance", func(t *testing.T) {
		titleHit := publishedDoc(uuid.Must(uuid.NewV7()), "go tips", 0, 0, now)
		contentHit := publishedDoc(uuid.Must(uuid.NewV7()), "misc", 0, 0, now)
		contentHit.Content = "all about go"
		index := newFakeIndex(titleHit, contentHit)
		service := NewReadService(index, &MockPostRepository{}, 48*time.Hour, 10, nil)

		result, err := service.SearchPosts(ctx, domain.SearchFilter{Keyword: "go"}, false)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "go tips", result.Items[0].Title)
	})

	t.Run("index failure surfaces as unavailable without database fallback", func(t *testing.T) {
		index := newFakeIndex()
		index.err = apperrors.New("connection refused")
		postRepo := &MockPostRepository{}
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		_, err := service.SearchPosts(ctx, domain.SearchFilter{}, false)
		assert.ErrorIs(t, err, apperrors.ErrUnavailable)
		postRepo.AssertNotCalled(t, "Search")
	})

	t.Run("forceDatabase serves the same ranked shape from the repository", func(t *testing.T) {
		authorID := uuid.Must(uuid.NewV7())
		postRepo := &MockPostRepository{}
		postRepo.On("Search", ctx, domain.SearchFilter{
			SortField: domain.SortFieldCreatedAt,
			SortOrder: domain.SortOrderDesc,
		}).Return([]*domain.PostDetail{
			{
				Post: domain.Post{
					ID: uuid.Must(uuid.NewV7()), AuthorID: authorID, Title: "quiet",
					Status: domain.PostStatusPublished, ViewCount: 5, CreatedAt: now,
				},
			},
			{
				Post: domain.Post{
					ID: uuid.Must(uuid.NewV7()), AuthorID: authorID, Title: "hot",
					Status: domain.PostStatusPublished, ViewCount: 20, CreatedAt: now,
				},
				LikeCount: 20,
			},
		}, nil)
		service := NewReadService(newFakeIndex(), postRepo, 48*time.Hour, 10, nil)

		result, err := service.SearchPosts(ctx, domain.SearchFilter{
			SortField: domain.SortFieldPopular,
		}, true)
		require.NoError(t, err)
		assert.Equal(t, SourceDatabase, result.Source)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "hot", result.Items[0].Title)
	})
}

func TestReadServiceTrendingPosts(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("ranks recent posts by velocity and honors the limit", func(t *testing.T) {
		fast := publishedDoc(uuid.Must(uuid.NewV7()), "fast", 10, 40, now.Add(-2*time.Hour))
		slow := publishedDoc(uuid.Must(uuid.NewV7()), "slow", 1, 5, now.Add(-40*time.Hour))
		outside := publishedDoc(uuid.Must(uuid.NewV7()), "outside", 100, 1000, now.Add(-72*time.Hour))
		index := newFakeIndex(fast, slow, outside)
		service := NewReadService(index, &MockPostRepository{}, 48*time.Hour, 2, nil)

		result, err := service.TrendingPosts(ctx)
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "fast", result.Items[0].Title)
		assert.Equal(t, "slow", result.Items[1].Title)
	})

	t.Run("degrades to the database when the index is down", func(t *testing.T) {
		index := newFakeIndex()
		index.err = apperrors.New("connection refused")
		postRepo := &MockPostRepository{}
		postRepo.On("Search", ctx, domain.SearchFilter{
			Status:    domain.PostStatusPublished,
			SortField: domain.SortFieldCreatedAt,
		}).Return([]*domain.PostDetail{
			{
				Post: domain.Post{
					ID: uuid.Must(uuid.NewV7()), AuthorID: uuid.Must(uuid.NewV7()),
					Title: "fallback", Status: domain.PostStatusPublished,
					ViewCount: 10, CreatedAt: now.Add(-time.Hour),
				},
			},
		}, nil)
		service := NewReadService(index, postRepo, 48*time.Hour, 10, nil)

		result, err := service.TrendingPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, SourceDatabase, result.Source)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "fallback", result.Items[0].Title)
	})
}
