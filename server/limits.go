package server

import (
	"net/http"
	"time"

	"github.com/alissonfar/newApp-sub001/engine"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// runLimiter throttles execute and undo requests across all rules
type runLimiter struct {
	limiter   *rate.Limiter
	throttled *atomic.Int64
}

func newRunLimiter(perSecond rate.Limit, burst int) *runLimiter {
	return &runLimiter{
		limiter:   rate.NewLimiter(perSecond, burst),
		throttled: atomic.NewInt64(0),
	}
}

func (l *runLimiter) handler(c *gin.Context) {
	if !l.limiter.Allow() {
		l.throttled.Inc()
		c.Header("Retry-After", "1")
		abortWithClientError(c, http.StatusTooManyRequests, errRateLimited)
	}
}

// previewCache holds simulation results until the next write.
// Entries are tagged with the write generation they were computed in, so a simulation racing a write is never served later.
type previewCache struct {
	cache      *cache.Cache
	generation *atomic.Int64
}

type preview struct {
	generation int64
	result     engine.SimulationResult
}

func newPreviewCache(duration time.Duration) *previewCache {
	return &previewCache{
		cache:      cache.New(duration, duration*2),
		generation: atomic.NewInt64(0),
	}
}

func (p *previewCache) Get(ruleID string) (engine.SimulationResult, bool) {
	value, found := p.cache.Get(ruleID)
	if !found {
		return engine.SimulationResult{}, false
	}
	cached := value.(preview)
	if cached.generation != p.generation.Load() {
		return engine.SimulationResult{}, false
	}
	return cached.result, true
}

// Generation returns the current write generation, read before computing a result to Set
func (p *previewCache) Generation() int64 {
	return p.generation.Load()
}

func (p *previewCache) Set(ruleID string, generation int64, result engine.SimulationResult) {
	if generation != p.generation.Load() {
		return
	}
	p.cache.SetDefault(ruleID, preview{generation: generation, result: result})
}

func (p *previewCache) Invalidate() {
	p.generation.Inc()
	p.cache.Flush()
}

// invalidator drops cached previews around a write, including writes that fail part way
func (p *previewCache) invalidator() gin.HandlerFunc {
	return func(c *gin.Context) {
		p.Invalidate()
		c.Next()
		p.Invalidate()
	}
}
