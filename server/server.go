package server

import (
	"net/http"
	"time"

	"github.com/alissonfar/newApp-sub001/engine"
	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/rules"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	loggerKey = "logger"
	ownerKey  = "owner"

	defaultPreviewDuration = time.Minute
	defaultRunsPerSecond   = 5
	defaultRunBurst        = 10
)

// Options tunes the API's preview cache and execute/undo rate limit. Zero values use defaults.
type Options struct {
	PreviewDuration time.Duration
	RunsPerSecond   rate.Limit
	RunBurst        int
}

func (o Options) withDefaults() Options {
	if o.PreviewDuration <= 0 {
		o.PreviewDuration = defaultPreviewDuration
	}
	if o.RunsPerSecond <= 0 {
		o.RunsPerSecond = defaultRunsPerSecond
	}
	if o.RunBurst <= 0 {
		o.RunBurst = defaultRunBurst
	}
	return o
}

// Run starts the API server on addr and blocks until it fails
func Run(addr string, eng *engine.Engine, ruleStore *rules.Store, txnStore *ledger.Store, logger *zap.Logger) error {
	handler := New(eng, ruleStore, txnStore, logger, Options{})
	logger.Info("Starting server", zap.String("addr", addr))
	return handler.Run(addr)
}

// New creates the API handler, rooted at /api/v1
func New(eng *engine.Engine, ruleStore *rules.Store, txnStore *ledger.Store, logger *zap.Logger, opts Options) *gin.Engine {
	opts = opts.withDefaults()
	router := gin.New()
	router.Use(
		ginzap.Ginzap(logger, time.RFC3339, true),
		recovery(logger, true),
	)

	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(loggerKey, logger)
	})

	previews := newPreviewCache(opts.PreviewDuration)
	limiter := newRunLimiter(opts.RunsPerSecond, opts.RunBurst)
	setupAPI(api, eng, ruleStore, txnStore, previews, limiter)
	return router
}

func setupAPI(
	router gin.IRouter,
	eng *engine.Engine,
	ruleStore *rules.Store,
	txnStore *ledger.Store,
	previews *previewCache,
	limiter *runLimiter,
) {
	router.GET("/version", getVersion)
	router.GET("/status", getStatus(eng, limiter))

	// every write may change a simulation's outcome
	invalidate := previews.invalidator()

	router.GET("/rules", requireOwner, getRules(ruleStore))
	router.POST("/rules", invalidate, addRule(ruleStore))
	router.GET("/rules/:id", getRule(ruleStore))
	router.PUT("/rules/:id", invalidate, updateRule(ruleStore))
	router.DELETE("/rules/:id", invalidate, removeRule(ruleStore))
	router.POST("/rules/:id/simulate", simulateRule(eng, previews))
	router.POST("/rules/:id/execute", limiter.handler, invalidate, executeRule(eng))
	router.POST("/rules/:id/undo", limiter.handler, invalidate, undoRule(eng))

	router.GET("/transactions", requireOwner, getTransactions(txnStore))
	router.POST("/transactions", invalidate, addTransaction(txnStore))
	router.GET("/transactions/:id", getTransaction(txnStore))
	router.PUT("/transactions/:id", invalidate, replaceTransaction(txnStore))
	router.DELETE("/transactions/:id", invalidate, removeTransaction(txnStore))
}

func requireOwner(c *gin.Context) {
	owner := c.Query(ownerKey)
	if owner == "" {
		abortWithClientError(c, http.StatusBadRequest, errMissingOwner)
		return
	}
	c.Set(ownerKey, owner)
}
