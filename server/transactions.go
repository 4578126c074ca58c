package server

import (
	"encoding/json"
	"net/http"

	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/search"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func readTransaction(c *gin.Context) (ledger.Transaction, bool) {
	decoder := json.NewDecoder(c.Request.Body)
	var txn ledger.Transaction
	if err := decoder.Decode(&txn); err != nil {
		abortWithClientError(c, http.StatusBadRequest, errors.Wrap(err, "Malformed transaction"))
		return ledger.Transaction{}, false
	}
	return txn, true
}

func getTransactions(txnStore *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		txns, err := txnStore.FindAllForOwner(c.Request.Context(), c.GetString(ownerKey))
		if err != nil {
			abortWithError(c, err)
			return
		}
		txns = search.Filter(txns, func(txn ledger.Transaction) string {
			return txn.Description
		}, c.Query("search"))
		if txns == nil {
			txns = []ledger.Transaction{}
		}
		c.JSON(http.StatusOK, map[string]interface{}{
			"Transactions": txns,
		})
	}
}

func getTransaction(txnStore *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		txn, found, err := txnStore.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !found {
			abortWithError(c, errors.Wrap(ledger.ErrTransactionNotFound, id))
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func addTransaction(txnStore *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		txn, ok := readTransaction(c)
		if !ok {
			return
		}
		added, err := txnStore.Add(c.Request.Context(), txn)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, added)
	}
}

func replaceTransaction(txnStore *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		txn, ok := readTransaction(c)
		if !ok {
			return
		}
		if txn.ID != "" && txn.ID != id {
			abortWithClientError(c, http.StatusBadRequest, errors.Errorf("Transaction ID %q does not match URL ID %q", txn.ID, id))
			return
		}
		txn.ID = id
		if txn.Status == "" {
			txn.Status = ledger.Active
		}
		if err := txnStore.Replace(c.Request.Context(), id, txn); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func removeTransaction(txnStore *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := txnStore.Remove(c.Request.Context(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
