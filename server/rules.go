package server

import (
	"encoding/json"
	"net/http"

	"github.com/alissonfar/newApp-sub001/engine"
	"github.com/alissonfar/newApp-sub001/rules"
	"github.com/alissonfar/newApp-sub001/search"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func readRule(c *gin.Context) (rules.Rule, bool) {
	decoder := json.NewDecoder(c.Request.Body)
	var rule rules.Rule
	if err := decoder.Decode(&rule); err != nil {
		abortWithClientError(c, http.StatusBadRequest, errors.Wrap(err, "Malformed rule"))
		return rules.Rule{}, false
	}
	return rule, true
}

func getRules(ruleStore *rules.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleList, err := ruleStore.List(c.Request.Context(), c.GetString(ownerKey))
		if err != nil {
			abortWithError(c, err)
			return
		}
		ruleList = search.Filter(ruleList, func(rule rules.Rule) string {
			return rule.Name
		}, c.Query("search"))
		if ruleList == nil {
			ruleList = []rules.Rule{}
		}
		c.JSON(http.StatusOK, map[string]interface{}{
			"Rules": ruleList,
		})
	}
}

func getRule(ruleStore *rules.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		rule, found, err := ruleStore.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !found {
			abortWithError(c, errors.Wrap(rules.ErrRuleNotFound, id))
			return
		}
		c.JSON(http.StatusOK, rule)
	}
}

func addRule(ruleStore *rules.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		rule, ok := readRule(c)
		if !ok {
			return
		}
		added, err := ruleStore.Add(c.Request.Context(), rule)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, added)
	}
}

func updateRule(ruleStore *rules.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		rule, ok := readRule(c)
		if !ok {
			return
		}
		updated, err := ruleStore.Update(c.Request.Context(), c.Param("id"), rule)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func removeRule(ruleStore *rules.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ruleStore.Remove(c.Request.Context(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func simulateRule(eng *engine.Engine, previews *previewCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if result, found := previews.Get(id); found {
			c.Header("X-Preview-Cache", "hit")
			c.JSON(http.StatusOK, result)
			return
		}
		generation := previews.Generation()
		result, err := eng.Simulate(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		previews.Set(id, generation, result)
		c.Header("X-Preview-Cache", "miss")
		c.JSON(http.StatusOK, result)
	}
}

func executeRule(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := eng.Execute(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func undoRule(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := eng.Undo(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
