package server

import (
	"net/http"

	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/rules"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	errMissingOwner = errors.New("Query parameter 'owner' is required")
	errRateLimited  = errors.New("Too many rule runs, try again shortly")
)

func abortWithClientError(c *gin.Context, status int, err error) {
	logger := c.MustGet(loggerKey).(*zap.Logger)
	if status/100 == 5 {
		logger.Error("Aborting with server error", zap.Error(err))
	} else {
		logger.Info("Aborting with client error", zap.String("error", err.Error()))
	}
	body := map[string]interface{}{
		"Error": err.Error(),
	}
	var invalid rules.InvalidRuleError
	if errors.As(err, &invalid) {
		body["Problems"] = invalid.Problems
	}
	c.AbortWithStatusJSON(status, body)
}

// abortWithError picks the response status from the kind of err
func abortWithError(c *gin.Context, err error) {
	abortWithClientError(c, errorStatus(err), err)
}

// write failures and anything unexpected are server errors
func errorStatus(err error) int {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound), errors.Is(err, ledger.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, rules.ErrNoExecutionToUndo):
		return http.StatusConflict
	case rules.IsInvalidRule(err), ledger.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
