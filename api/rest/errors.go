package rest

import (
	"net/http"
	"strconv"

	"github.com/fitquest/server/apperr"
	"github.com/gin-gonic/gin"
)

// respondError writes err with the status of its apperr kind. Internal
// failures never leak their cause to the client.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInternal {
		msg = "internal error"
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

// paramID parses a positive int64 path parameter, writing 400 on failure.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
