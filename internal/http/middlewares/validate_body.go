package middlewares

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/JeandreDegenaar/q1-profiles/internal/sanitize"
	"github.com/gin-gonic/gin"
)

// ValidateBody is the input-validation gate applied to every mutating
// request. Empty bodies, non-object bodies and keyless objects pass through
// untouched; otherwise every top-level string value must clear the
// sanitizer. Non-string values (numbers, nested objects) are deliberately
// out of this gate's scope.
func ValidateBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		if c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)

		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"message": "Invalid request body",
			})
			return
		}

		// Hand the bytes back to the JSON binder downstream.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if len(bytes.TrimSpace(body)) == 0 {
			c.Next()
			return
		}

		var fields map[string]any

		if err := json.Unmarshal(body, &fields); err != nil {
			// Not a JSON object; the binder produces the 400.
			c.Next()
			return
		}

		// Deterministic order so the offending field named is stable.
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value, ok := fields[key].(string)

			if ok && sanitize.IsInvalid(value) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"message": fmt.Sprintf("Field %q contains whitespace or emoji", key),
				})
				return
			}
		}

		c.Next()
	}
}
