package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/plantlab/lessonhub/internal/domain"
	"github.com/plantlab/lessonhub/internal/logger"
	"github.com/plantlab/lessonhub/internal/repository"
)

// neighborSearchLimit bounds how many index hits are considered per lesson
// when the vector index handles the embedding leg.
const neighborSearchLimit = 32

// VectorIndex is the optional approximate-nearest-neighbor candidate source
// for the embedding leg of detection. When absent, the finder compares every
// embedding pair exactly.
type VectorIndex interface {
	SearchNeighbors(ctx context.Context, vector []float32, topK int, threshold float32) ([]repository.Neighbor, error)
}

// VectorIndexWriter accepts lesson points for indexing. Upserts are keyed on
// the lesson id, so re-running a rebuild over the same store is idempotent.
type VectorIndexWriter interface {
	UpsertLesson(ctx context.Context, lessonID, title string, vector []float32) error
}

// FinderConfig holds the detection policy knobs.
type FinderConfig struct {
	// SimilarityThreshold is the cosine score at or above which two
	// embeddings count as near-identical content.
	SimilarityThreshold float32
	// ExcludedTitle is the placeholder title given to known-bad imports;
	// records carrying it are never candidates.
	ExcludedTitle string
}

// FinderService scans the live lesson set for candidate duplicate pairs.
// Detection is a pure read: it never mutates the store, and its output can go
// stale the moment a mutation lands, so consumers must re-validate before
// acting on a pair.
type FinderService struct {
	lessonRepo *repository.LessonRepository
	index      VectorIndex
	threshold  float32
	excluded   string
}

// NewFinderService creates a finder over the lesson repository. index may be
// nil, in which case the embedding leg runs as an exact pairwise comparison.
func NewFinderService(lessonRepo *repository.LessonRepository, index VectorIndex, cfg *FinderConfig) *FinderService {
	return &FinderService{
		lessonRepo: lessonRepo,
		index:      index,
		threshold:  cfg.SimilarityThreshold,
		excluded:   NormalizeTitle(cfg.ExcludedTitle),
	}
}

// FindDuplicatePairs returns every unordered candidate pair: same normalized
// title, or cosine similarity of embeddings at or above the threshold. Pairs
// carry the lexicographically smaller id first and are ordered by detection
// method priority (both > same_title > embedding) then similarity descending,
// so repeated runs over an unchanged store produce identical output.
func (s *FinderService) FindDuplicatePairs(ctx context.Context) ([]domain.DuplicatePair, error) {
	start := time.Now()

	lessons, err := s.lessonRepo.ListAll(ctx)
	if err != nil {
		return nil, storageFailure("failed to load lessons for duplicate scan", err)
	}

	// Known-bad imports carry the placeholder title; they are never candidates.
	candidates := make([]domain.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		if NormalizeTitle(lesson.Title) == s.excluded {
			continue
		}
		candidates = append(candidates, lesson)
	}

	byID := make(map[string]*domain.Lesson, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	pairs := make(map[[2]string]*domain.DuplicatePair)

	s.collectTitleMatches(candidates, pairs)

	if err := s.collectEmbeddingMatches(ctx, candidates, byID, pairs); err != nil {
		return nil, err
	}

	// Similarity is reported whenever computable, including for pairs found
	// only by title.
	results := make([]domain.DuplicatePair, 0, len(pairs))
	for key, pair := range pairs {
		if pair.Similarity == 0 {
			a, b := byID[key[0]], byID[key[1]]
			if a.HasEmbedding() && b.HasEmbedding() {
				pair.Similarity = CosineSimilarity(a.Embedding, b.Embedding)
			}
		}
		results = append(results, *pair)
	}

	sort.Slice(results, func(i, j int) bool {
		if pi, pj := results[i].DetectionMethod.Priority(), results[j].DetectionMethod.Priority(); pi != pj {
			return pi > pj
		}
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].ID1 != results[j].ID1 {
			return results[i].ID1 < results[j].ID1
		}
		return results[i].ID2 < results[j].ID2
	})

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(results),
	}).Info(ctx, "Duplicate scan completed: lessons=%d, candidates=%d", len(lessons), len(candidates))

	return results, nil
}

// RebuildIndex pushes every live lesson carrying an embedding into the vector
// index and returns the number of points written. Lessons with the excluded
// placeholder title are skipped, matching the candidate set the finder
// actually searches. Best-effort index state (stale points from failed
// post-archive cleanup) converges to the live set on the next rebuild.
func (s *FinderService) RebuildIndex(ctx context.Context, writer VectorIndexWriter) (int, error) {
	start := time.Now()

	lessons, err := s.lessonRepo.ListAll(ctx)
	if err != nil {
		return 0, storageFailure("failed to load lessons for index rebuild", err)
	}

	indexed := 0
	for i := range lessons {
		lesson := &lessons[i]
		if !lesson.HasEmbedding() || NormalizeTitle(lesson.Title) == s.excluded {
			continue
		}
		if err := writer.UpsertLesson(ctx, lesson.ID, lesson.Title, lesson.Embedding); err != nil {
			return indexed, storageFailure(fmt.Sprintf("failed to index lesson %s", lesson.ID), err)
		}
		indexed++
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      indexed,
	}).Info(ctx, "Vector index rebuilt: lessons=%d, indexed=%d", len(lessons), indexed)

	return indexed, nil
}

// collectTitleMatches buckets lessons by normalized title and emits a pair for
// every two lessons sharing a bucket.
func (s *FinderService) collectTitleMatches(lessons []domain.Lesson, pairs map[[2]string]*domain.DuplicatePair) {
	buckets := make(map[string][]*domain.Lesson)
	for i := range lessons {
		key := NormalizeTitle(lessons[i].Title)
		buckets[key] = append(buckets[key], &lessons[i])
	}

	for _, bucket := range buckets {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				s.recordPair(pairs, bucket[i], bucket[j], domain.DetectionSameTitle, 0)
			}
		}
	}
}

// collectEmbeddingMatches adds pairs whose cosine similarity clears the
// threshold, via the vector index when configured and exact pairwise
// comparison otherwise.
func (s *FinderService) collectEmbeddingMatches(ctx context.Context, lessons []domain.Lesson, byID map[string]*domain.Lesson, pairs map[[2]string]*domain.DuplicatePair) error {
	if s.index != nil {
		for i := range lessons {
			lesson := &lessons[i]
			if !lesson.HasEmbedding() {
				continue
			}
			neighbors, err := s.index.SearchNeighbors(ctx, lesson.Embedding, neighborSearchLimit, s.threshold)
			if err != nil {
				return storageFailure(fmt.Sprintf("vector index search failed for lesson %s", lesson.ID), err)
			}
			for _, n := range neighbors {
				other, live := byID[n.LessonID]
				if !live || n.LessonID == lesson.ID {
					continue
				}
				s.recordPair(pairs, lesson, other, domain.DetectionEmbedding, n.Score)
			}
		}
		return nil
	}

	// Exact pairwise comparison. O(n^2) over the embedded subset, acceptable
	// at the corpus sizes this store serves.
	embedded := make([]*domain.Lesson, 0, len(lessons))
	for i := range lessons {
		if lessons[i].HasEmbedding() {
			embedded = append(embedded, &lessons[i])
		}
	}
	for i := 0; i < len(embedded); i++ {
		for j := i + 1; j < len(embedded); j++ {
			score := CosineSimilarity(embedded[i].Embedding, embedded[j].Embedding)
			if score >= s.threshold {
				s.recordPair(pairs, embedded[i], embedded[j], domain.DetectionEmbedding, score)
			}
		}
	}
	return nil
}

// recordPair inserts or upgrades a candidate pair. A pair found by both legs
// is reported once with method "both" and the embedding score.
func (s *FinderService) recordPair(pairs map[[2]string]*domain.DuplicatePair, a, b *domain.Lesson, method domain.DetectionMethod, score float32) {
	if a.ID > b.ID {
		a, b = b, a
	}
	key := [2]string{a.ID, b.ID}

	existing, ok := pairs[key]
	if !ok {
		pairs[key] = &domain.DuplicatePair{
			ID1:             a.ID,
			ID2:             b.ID,
			Title1:          a.Title,
			Title2:          b.Title,
			DetectionMethod: method,
			Similarity:      score,
		}
		return
	}

	if existing.DetectionMethod != method {
		existing.DetectionMethod = domain.DetectionBoth
	}
	if score > existing.Similarity {
		existing.Similarity = score
	}
}

// GroupPairs computes connected components over the pair graph with
// union-find. Groups are derived in memory on every call and never persisted;
// a lesson with no pair edges belongs to no group.
func GroupPairs(pairs []domain.DuplicatePair) []domain.DuplicateGroup {
	parent := make(map[string]string)

	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		if _, ok := parent[a]; !ok {
			parent[a] = a
		}
		if _, ok := parent[b]; !ok {
			parent[b] = b
		}
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, pair := range pairs {
		union(pair.ID1, pair.ID2)
	}

	members := make(map[string][]string)
	for id := range parent {
		root := find(id)
		members[root] = append(members[root], id)
	}
	groupPairs := make(map[string][]domain.DuplicatePair)
	for _, pair := range pairs {
		root := find(pair.ID1)
		groupPairs[root] = append(groupPairs[root], pair)
	}

	groups := make([]domain.DuplicateGroup, 0, len(members))
	for root, ids := range members {
		sort.Strings(ids)
		groups = append(groups, domain.DuplicateGroup{
			LessonIDs: ids,
			Pairs:     groupPairs[root],
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].LessonIDs[0] < groups[j].LessonIDs[0]
	})

	return groups
}
