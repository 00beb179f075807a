package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// respondServiceError maps typed service errors to HTTP status codes:
// validation 400, not found 404, conflict 409, persistence 503, other 500.
func respondServiceError(c *gin.Context, err error) {
	var (
		vErr *services.ValidationError
		nErr *services.NotFoundError
		cErr *services.ConflictError
		pErr *services.PersistenceError
	)
	switch {
	case errors.As(err, &vErr):
		utils.RespondErrorDetail(c, http.StatusBadRequest, err, vErr)
	case errors.As(err, &nErr):
		utils.RespondErrorDetail(c, http.StatusNotFound, err, nErr)
	case errors.As(err, &cErr):
		utils.RespondErrorDetail(c, http.StatusConflict, err, cErr)
	case errors.As(err, &pErr):
		utils.ErrorLogger.WithFields(logrus.Fields{
			"path":      c.Request.URL.Path,
			"op":        pErr.Op,
			"retryable": pErr.Retryable,
		}).Errorf("store failure: %v", pErr.Err)
		if pErr.Retryable {
			c.Header("Retry-After", "1")
		}
		utils.RespondErrorDetail(c, http.StatusServiceUnavailable, errors.New("store unavailable, retry the request"), pErr)
	default:
		utils.ErrorLogger.WithField("path", c.Request.URL.Path).Errorf("unexpected error: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func bindError(c *gin.Context, err error) {
	utils.RespondErrorDetail(c, http.StatusBadRequest, err, &services.ValidationError{Field: "body", Reason: err.Error()})
}
