package usecase

import (
	"sort"
	"strings"
	"time"

	projectionDomain "github.com/allisson/community/internal/projection/domain"
)

// Popularity weights. A like is worth three views; posts older than thirty
// days take a 25% haircut so the front page does not fossilize.
const (
	popularLikeWeight  = 3
	popularViewWeight  = 1
	agePenaltyFactor   = 0.75
	agePenaltyAfter    = 30 * 24 * time.Hour
	keywordTitleWeight = 3
)

// popularScore computes the read-time popularity of a post.
func popularScore(likeCount, viewCount int64, createdAt, now time.Time) float64 {
	score := float64(likeCount*popularLikeWeight + viewCount*popularViewWeight)
	if now.Sub(createdAt) > agePenaltyAfter {
		score *= agePenaltyFactor
	}
	return score
}

// keywordScore weights keyword hits: title matches count three times as much
// as content matches. Matching is case-insensitive substring counting.
func keywordScore(title, content, keyword string) int {
	needle := strings.ToLower(keyword)
	if needle == "" {
		return 0
	}
	return keywordTitleWeight*strings.Count(strings.ToLower(title), needle) +
		strings.Count(strings.ToLower(content), needle)
}

// trendingScore measures engagement velocity: views plus likes per hour of
// age, with age floored at one hour so brand-new posts do not divide by zero.
func trendingScore(viewCount, likeCount int64, createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 1 {
		hours = 1
	}
	return float64(viewCount+likeCount) / hours
}

// rankByPopularity orders documents by popularity score descending, newest
// first on ties.
func rankByPopularity(docs []*projectionDomain.PostDocument, now time.Time) {
	sort.SliceStable(docs, func(i, j int) bool {
		si := popularScore(docs[i].LikeCount, docs[i].ViewCount, time.UnixMilli(docs[i].CreatedAt), now)
		sj := popularScore(docs[j].LikeCount, docs[j].ViewCount, time.UnixMilli(docs[j].CreatedAt), now)
		if si != sj {
			return si > sj
		}
		return docs[i].CreatedAt > docs[j].CreatedAt
	})
}

// rankByRelevance orders documents by weighted keyword hits descending,
// newest first on ties.
func rankByRelevance(docs []*projectionDomain.PostDocument, keyword string) {
	sort.SliceStable(docs, func(i, j int) bool {
		si := keywordScore(docs[i].Title, docs[i].Content, keyword)
		sj := keywordScore(docs[j].Title, docs[j].Content, keyword)
		if si != sj {
			return si > sj
		}
		return docs[i].CreatedAt > docs[j].CreatedAt
	})
}

// rankByTrending orders documents by engagement velocity descending, newest
// first on ties.
func rankByTrending(docs []*projectionDomain.PostDocument, now time.Time) {
	sort.SliceStable(docs, func(i, j int) bool {
		si := trendingScore(docs[i].ViewCount, docs[i].LikeCount, time.UnixMilli(docs[i].CreatedAt), now)
		sj := trendingScore(docs[j].ViewCount, docs[j].LikeCount, time.UnixMilli(docs[j].CreatedAt), now)
		if si != sj {
			return si > sj
		}
		return docs[i].CreatedAt > docs[j].CreatedAt
	})
}

// slicePage applies offset/limit to an already-ranked slice. A non-positive
// limit returns everything from the offset on.
func slicePage(docs []*projectionDomain.PostDocument, offset, limit int) []*projectionDomain.PostDocument {
	if offset >= len(docs) {
		return nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
