package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "tutoring:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "tutoring:1", map[string]string{"id": "1"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "tutoring:1"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "tutorings:*"))
	assert.NoError(t, repo.Close())
}
