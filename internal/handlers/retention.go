package handlers

import (
	"context"
	"time"

	"github.com/xHacka/logstat/internal/repository"
)

// Purge deletes resources and reports created before cutoff, along with
// the files of expired uploads. It returns the number of resources removed.
func Purge(ctx context.Context, repo repository.Repository, cutoff time.Time) (int, error) {
	removed, err := repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, res := range removed {
		removeUpload(res)
	}
	return len(removed), nil
}
