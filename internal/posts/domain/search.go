package domain

import "github.com/google/uuid"

// Sort fields accepted by post listing queries.
const (
	SortFieldCreatedAt = "created_at"
	SortFieldViews     = "views"
	SortFieldLikes     = "likes"
	SortFieldPopular   = "popular"
)

// Sort orders accepted by post listing queries.
const (
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// SearchFilter holds post listing criteria. All present filters combine
// with AND. A zero Limit means no pagination: the caller ranks and slices.
type SearchFilter struct {
	Keyword    string
	AuthorID   uuid.UUID
	CategoryID uuid.UUID
	Status     PostStatus
	SortField  string
	SortOrder  string
	Offset     int
	Limit      int
}
