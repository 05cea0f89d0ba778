package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatingStatsWithoutRedis(t *testing.T) {
	catalog := NewBookCatalog(nil, nil)

	count, avg := catalog.RatingStats(context.Background(), 1)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0.0, avg)
}
