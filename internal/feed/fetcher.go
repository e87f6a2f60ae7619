package feed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"brief-backend/internal/metrics"
	"brief-backend/internal/post"

	"golang.org/x/sync/errgroup"
)

// PostSource is the post store as seen by the feed.
type PostSource interface {
	ByAuthors(ctx context.Context, authorIDs []string) ([]post.Post, error)
	Latest(ctx context.Context, userID string) (post.Post, bool, error)
	Get(ctx context.Context, id string) (post.Post, error)
}

type Fetcher struct {
	posts     PostSource
	chunkSize int
	timeout   time.Duration
}

func NewFetcher(posts PostSource, chunkSize int, timeout time.Duration) *Fetcher {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if timeout <= 0 {
		timeout = defaultFetchLimit
	}
	return &Fetcher{posts: posts, chunkSize: chunkSize, timeout: timeout}
}

type fetchResult struct {
	posts        []post.Post
	failedChunks []int
}

// Fetch loads the briefs of authorIDs with one query per chunk of ids, all
// chunks in flight at once. A chunk that fails or times out contributes
// nothing and is reported by index.
func (f *Fetcher) Fetch(ctx context.Context, authorIDs []string) fetchResult {
	chunks := Chunk(authorIDs, f.chunkSize)
	if len(chunks) == 0 {
		return fetchResult{posts: []post.Post{}}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	batches := make([][]post.Post, len(chunks))
	var (
		mu     sync.Mutex
		failed []int
	)
	var g errgroup.Group
	for i, chunk := range chunks {
		g.Go(func() error {
			posts, err := f.posts.ByAuthors(ctx, chunk)
			metrics.RecordFeedChunk(err == nil)
			if err != nil {
				mu.Lock()
				failed = append(failed, i)
				mu.Unlock()
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			batches[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("feed fetch incomplete", "chunks", len(chunks), "failed", len(failed), "error", err)
	}

	slices.Sort(failed)
	return fetchResult{posts: Merge(batches...), failedChunks: failed}
}

// Chunk splits ids into consecutive groups of at most size ids, skipping
// duplicates.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultChunkSize
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var chunks [][]string
	for start := 0; start < len(unique); start += size {
		end := min(start+size, len(unique))
		chunks = append(chunks, unique[start:end])
	}
	return chunks
}
