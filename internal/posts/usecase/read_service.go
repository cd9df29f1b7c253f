package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/posts/domain"
	projectionDomain "github.com/allisson/community/internal/projection/domain"
	"github.com/allisson/community/internal/search"
)

// Sources a read result can come from.
const (
	SourceIndex    = "index"
	SourceDatabase = "database"
)

// PostResult is one post plus the source that served it.
type PostResult struct {
	Document *projectionDomain.PostDocument
	Source   string
}

// PostListResult is a page of posts plus the source that served it.
type PostListResult struct {
	Items  []*projectionDomain.PostDocument
	Total  int
	Source string
}

// ReadService serves post reads from the search index with the write
// database as fallback. Point reads fall back automatically; list queries
// only hit the database when the caller forces it, because unindexed list
// scans are what the index exists to avoid.
type ReadService interface {
	GetPost(ctx context.Context, id uuid.UUID, forceDatabase bool) (*PostResult, error)
	SearchPosts(ctx context.Context, filter domain.SearchFilter, forceDatabase bool) (*PostListResult, error)
	TrendingPosts(ctx context.Context) (*PostListResult, error)
}

// readService implements ReadService.
type readService struct {
	index          search.Index
	postRepo       PostRepository
	trendingWindow time.Duration
	trendingLimit  int
	logger         *slog.Logger
}

// NewReadService creates a new ReadService.
func NewReadService(
	index search.Index,
	postRepo PostRepository,
	trendingWindow time.Duration,
	trendingLimit int,
	logger *slog.Logger,
) ReadService {
	return &readService{
		index:          index,
		postRepo:       postRepo,
		trendingWindow: trendingWindow,
		trendingLimit:  trendingLimit,
		logger:         logger,
	}
}

// GetPost reads one post, index first. An index miss or outage falls back to
// the system of record; only both sources failing surfaces an error.
func (s *readService) GetPost(ctx context.Context, id uuid.UUID, forceDatabase bool) (*PostResult, error) {
	if !forceDatabase {
		doc, err := s.index.GetPost(ctx, id.String())
		if err == nil {
			return &PostResult{Document: doc, Source: SourceIndex}, nil
		}
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			s.logWarn("search index point read failed, falling back to database",
				slog.String("post_id", id.String()), slog.Any("error", err))
		}
	}

	detail, err := s.postRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Status == domain.PostStatusDeleted {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "post not found")
	}

	return &PostResult{Document: detailToDocument(detail), Source: SourceDatabase}, nil
}

// SearchPosts lists posts from the index, or from the database when forced.
func (s *readService) SearchPosts(
	ctx context.Context,
	filter domain.SearchFilter,
	forceDatabase bool,
) (*PostListResult, error) {
	if forceDatabase {
		return s.searchDatabase(ctx, filter)
	}

	result, err := s.searchIndex(ctx, filter)
	if err != nil {
		s.logWarn("search index query failed", slog.Any("error", err))
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, "search index query failed")
	}
	return result, nil
}

// TrendingPosts returns the most active recent posts. The index serves it
// normally; an index outage degrades to the database.
func (s *readService) TrendingPosts(ctx context.Context) (*PostListResult, error) {
	now := time.Now().UTC()

	page, err := s.index.SearchPosts(ctx, search.PostQuery{
		Status:    string(domain.PostStatusPublished),
		SortField: search.SortByCreatedAt,
	})
	if err == nil {
		return &PostListResult{
			Items:  s.pickTrending(page.Items, now),
			Total:  s.trendingLimit,
			Source: SourceIndex,
		}, nil
	}
	s.logWarn("search index trending query failed, falling back to database", slog.Any("error", err))

	details, err := s.postRepo.Search(ctx, domain.SearchFilter{
		Status:    domain.PostStatusPublished,
		SortField: domain.SortFieldCreatedAt,
	})
	if err != nil {
		return nil, err
	}

	return &PostListResult{
		Items:  s.pickTrending(detailsToDocuments(details), now),
		Total:  s.trendingLimit,
		Source: SourceDatabase,
	}, nil
}

// searchIndex maps the filter onto an index query. Ranked orderings pull the
// full candidate set, rank in memory and slice the page afterwards.
func (s *readService) searchIndex(ctx context.Context, filter domain.SearchFilter) (*PostListResult, error) {
	query := search.PostQuery{
		Keyword:   filter.Keyword,
		Status:    string(filter.Status),
		SortField: indexSortField(filter.SortField),
		SortOrder: filter.SortOrder,
		Offset:    filter.Offset,
		Limit:     filter.Limit,
	}
	if filter.AuthorID != uuid.Nil {
		query.AuthorID = filter.AuthorID.String()
	}
	if filter.CategoryID != uuid.Nil {
		query.CategoryID = filter.CategoryID.String()
	}

	ranked := rankedOrdering(filter)
	if ranked {
		query.SortField = search.SortByCreatedAt
		query.SortOrder = domain.SortOrderDesc
		query.Offset = 0
		query.Limit = 0
	}

	page, err := s.index.SearchPosts(ctx, query)
	if err != nil {
		return nil, err
	}

	items, total := page.Items, page.Total
	if ranked {
		rankDocuments(items, filter, time.Now().UTC())
		total = len(items)
		items = slicePage(items, filter.Offset, filter.Limit)
	}

	return &PostListResult{Items: items, Total: total, Source: SourceIndex}, nil
}

// searchDatabase mirrors searchIndex against the system of record.
func (s *readService) searchDatabase(ctx context.Context, filter domain.SearchFilter) (*PostListResult, error) {
	repoFilter := filter
	ranked := rankedOrdering(filter)
	if ranked {
		repoFilter.SortField = domain.SortFieldCreatedAt
		repoFilter.SortOrder = domain.SortOrderDesc
		repoFilter.Offset = 0
		repoFilter.Limit = 0
	}

	details, err := s.postRepo.Search(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	items := detailsToDocuments(details)
	total := len(items)
	if ranked {
		rankDocuments(items, filter, time.Now().UTC())
		items = slicePage(items, filter.Offset, filter.Limit)
	}

	return &PostListResult{Items: items, Total: total, Source: SourceDatabase}, nil
}

// pickTrending keeps candidates created inside the trending window, ranks
// them by velocity and returns the top slots.
func (s *readService) pickTrending(
	docs []*projectionDomain.PostDocument,
	now time.Time,
) []*projectionDomain.PostDocument {
	cutoff := now.Add(-s.trendingWindow).UnixMilli()

	var candidates []*projectionDomain.PostDocument
	for _, doc := range docs {
		if doc.CreatedAt >= cutoff {
			candidates = append(candidates, doc)
		}
	}

	rankByTrending(candidates, now)
	if len(candidates) > s.trendingLimit {
		candidates = candidates[:s.trendingLimit]
	}
	return candidates
}

func (s *readService) logWarn(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, args...)
}

// rankedOrdering reports whether the filter needs an in-memory ranking pass:
// popularity sorting always, and keyword queries without an explicit sort,
// which order by relevance.
func rankedOrdering(filter domain.SearchFilter) bool {
	if filter.SortField == domain.SortFieldPopular {
		return true
	}
	return filter.Keyword != "" && filter.SortField == ""
}

// rankDocuments applies the ordering rankedOrdering promised.
func rankDocuments(docs []*projectionDomain.PostDocument, filter domain.SearchFilter, now time.Time) {
	if filter.SortField == domain.SortFieldPopular {
		rankByPopularity(docs, now)
		return
	}
	rankByRelevance(docs, filter.Keyword)
}

// indexSortField maps listing sort fields onto index sort fields.
func indexSortField(sortField string) string {
	switch sortField {
	case domain.SortFieldViews:
		return search.SortByViews
	case domain.SortFieldLikes:
		return search.SortByLikes
	default:
		return search.SortByCreatedAt
	}
}

// detailToDocument converts a system-of-record detail row into the document
// shape the index serves, so both sources look identical to callers.
func detailToDocument(detail *domain.PostDetail) *projectionDomain.PostDocument {
	return &projectionDomain.PostDocument{
		ID:           detail.ID.String(),
		AuthorID:     detail.AuthorID.String(),
		AuthorName:   detail.AuthorName,
		CategoryID:   detail.CategoryID.String(),
		CategoryName: detail.CategoryName,
		Title:        detail.Title,
		Content:      detail.Content,
		Status:       string(detail.Status),
		ViewCount:    detail.ViewCount,
		LikeCount:    detail.LikeCount,
		DislikeCount: detail.DislikeCount,
		CommentCount: detail.CommentCount,
		CreatedAt:    detail.CreatedAt.UnixMilli(),
		UpdatedAt:    detail.UpdatedAt.UnixMilli(),
	}
}

func detailsToDocuments(details []*domain.PostDetail) []*projectionDomain.PostDocument {
	docs := make([]*projectionDomain.PostDocument, len(details))
	for i, detail := range details {
		docs[i] = detailToDocument(detail)
	}
	return docs
}
