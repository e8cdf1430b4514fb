package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/docstore"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// mustCaller aborts with 401 when the auth middleware did not resolve a
// caller for this request.
func mustCaller(c *gin.Context) (access.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no caller identity"})
		return access.Caller{}, false
	}
	return caller, true
}

// writeError maps a failed operation onto its HTTP status and records it.
func writeError(c *gin.Context, op string, err error) {
	var e *docstore.Error
	if !errors.As(err, &e) {
		metrics.Operations.WithLabelValues(op, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.Operations.WithLabelValues(op, "error").Inc()
	if e.Kind == docstore.KindAuthorization {
		metrics.AuthDenied.Inc()
	}
	body := gin.H{"error": e.Message}
	if len(e.Usage) > 0 {
		body["usedBy"] = e.Usage
	}
	c.JSON(e.HTTPStatus(), body)
}

func ok(c *gin.Context, op string, status int, body interface{}) {
	metrics.Operations.WithLabelValues(op, "ok").Inc()
	if body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

// splitIDs expands a comma-separated id path/query parameter.
func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseSort understands "field,-other": a leading '-' sorts descending.
func parseSort(s string) []storage.SortField {
	var out []storage.SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			out = append(out, storage.SortField{Field: part[1:], Desc: true})
		} else {
			out = append(out, storage.SortField{Field: part})
		}
	}
	return out
}

// parseWhere decodes the `where` query parameter, a JSON filter document.
func parseWhere(s string) (bson.M, error) {
	if s == "" {
		return nil, nil
	}
	var where bson.M
	if err := json.Unmarshal([]byte(s), &where); err != nil {
		return nil, err
	}
	return where, nil
}

func parseLimit(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
