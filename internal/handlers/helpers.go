package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

// bindError records a request decoding or validation failure for the error handler.
func bindError(c *gin.Context, err error) {
	c.Error(err).SetType(gin.ErrorTypeBind)
}

// isExplicitNull reports whether key was sent with a JSON null value.
func isExplicitNull(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	return ok && string(raw) == "null"
}
