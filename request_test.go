package vireo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestConstructors(t *testing.T) {
	assert.Equal(t, MethodGet, Get[video]("/videos").Method)
	assert.Equal(t, MethodPost, Post[video]("/videos").Method)
	assert.Equal(t, MethodPut, Put[video]("/videos/1").Method)
	assert.Equal(t, MethodPatch, Patch[video]("/videos/1").Method)
	assert.Equal(t, MethodDelete, Delete[video]("/videos/1").Method)

	nc := NoContentRequest(MethodDelete, "/videos/1")
	assert.True(t, nc.noContent)
	assert.Equal(t, MethodDelete, nc.Method)
}

func TestRequestWithMethodsReturnCopies(t *testing.T) {
	base := Get[video]("/videos")

	modified := base.
		WithParameters(map[string]any{"page": 1}).
		WithModelKeyPath("data").
		WithCacheWrite().
		WithRetry(RetryMultiple(3, time.Second))

	assert.Nil(t, base.Parameters)
	assert.Empty(t, base.ModelKeyPath)
	assert.False(t, base.CacheResponse)
	assert.Equal(t, uint(0), base.RetryPolicy.AttemptsRemaining())

	assert.Equal(t, 1, modified.Parameters["page"])
	assert.Equal(t, "data", modified.ModelKeyPath)
	assert.True(t, modified.CacheResponse)
	assert.Equal(t, uint(3), modified.RetryPolicy.AttemptsRemaining())
}

func TestRetryPolicy(t *testing.T) {
	t.Run("none never retries", func(t *testing.T) {
		assert.False(t, RetryNone().shouldRetry())
	})

	t.Run("single attempt never retries", func(t *testing.T) {
		assert.False(t, RetryMultiple(1, time.Second).shouldRetry())
	})

	t.Run("next decrements and doubles", func(t *testing.T) {
		p := RetryMultiple(3, 40*time.Millisecond)
		require.True(t, p.shouldRetry())

		p = p.next()
		assert.Equal(t, uint(2), p.AttemptsRemaining())
		assert.Equal(t, 80*time.Millisecond, p.InitialDelay())
		require.True(t, p.shouldRetry())

		p = p.next()
		assert.Equal(t, uint(1), p.AttemptsRemaining())
		assert.Equal(t, 160*time.Millisecond, p.InitialDelay())
		assert.False(t, p.shouldRetry())
	})
}

func TestNextAttemptPreservesEverythingButPolicy(t *testing.T) {
	req := Get[video]("/videos").
		WithParameters(map[string]any{"page": 2}).
		WithModelKeyPath("data").
		WithCacheWrite().
		WithCacheKey("explicit").
		WithRetry(RetryMultiple(3, time.Second))

	derived := req.nextAttempt()

	assert.Equal(t, req.Method, derived.Method)
	assert.Equal(t, req.Path, derived.Path)
	assert.Equal(t, req.Parameters, derived.Parameters)
	assert.Equal(t, req.ModelKeyPath, derived.ModelKeyPath)
	assert.Equal(t, req.CacheResponse, derived.CacheResponse)
	assert.Equal(t, req.CacheKey, derived.CacheKey)
	assert.Equal(t, uint(2), derived.RetryPolicy.AttemptsRemaining())
	assert.Equal(t, 2*time.Second, derived.RetryPolicy.InitialDelay())
}

func TestFollowingDropsParametersAndCacheKey(t *testing.T) {
	req := Get[video]("/videos").
		WithParameters(map[string]any{"page": 1}).
		WithModelKeyPath("data").
		WithCacheWrite().
		WithCacheKey("page-one").
		WithRetry(RetryMultiple(3, time.Second))

	sibling := req.following("/videos?page=2")

	assert.Equal(t, "/videos?page=2", sibling.Path)
	assert.Nil(t, sibling.Parameters, "link carries its own query string")
	assert.Empty(t, sibling.CacheKey, "identity is re-derived from the new path")
	assert.Equal(t, req.Method, sibling.Method)
	assert.Equal(t, req.ModelKeyPath, sibling.ModelKeyPath)
	assert.Equal(t, req.CacheResponse, sibling.CacheResponse)
	assert.Equal(t, req.RetryPolicy, sibling.RetryPolicy)
}

func TestCacheIdentity(t *testing.T) {
	t.Run("explicit key wins", func(t *testing.T) {
		req := Get[video]("/videos").WithCacheKey("my-key")
		assert.Equal(t, "my-key", req.CacheIdentity())
	})

	t.Run("order-insensitive over parameters", func(t *testing.T) {
		a := Get[video]("/videos").WithParameters(map[string]any{"page": 1, "per_page": 20})
		b := Get[video]("/videos").WithParameters(map[string]any{"per_page": 20, "page": 1})
		assert.Equal(t, a.CacheIdentity(), b.CacheIdentity())
	})

	t.Run("differs by method path and parameters", func(t *testing.T) {
		base := Get[video]("/videos")
		assert.NotEqual(t, base.CacheIdentity(), Post[video]("/videos").CacheIdentity())
		assert.NotEqual(t, base.CacheIdentity(), Get[video]("/channels").CacheIdentity())
		assert.NotEqual(t, base.CacheIdentity(),
			base.WithParameters(map[string]any{"page": 2}).CacheIdentity())
	})

	t.Run("stable across calls", func(t *testing.T) {
		req := Get[video]("/videos").WithParameters(map[string]any{"page": 1})
		assert.Equal(t, req.CacheIdentity(), req.CacheIdentity())
	})
}
