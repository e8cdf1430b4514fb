package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/docgate/docgate/internal/docstore"
	"github.com/docgate/docgate/internal/refguard"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// DocsHandler exposes the collection-agnostic document endpoints.
type DocsHandler struct {
	store *docstore.Store
}

func NewDocsHandler(store *docstore.Store) *DocsHandler {
	return &DocsHandler{store: store}
}

func (h *DocsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/api/docs/:collection", h.Find)
	rg.GET("/api/docs/:collection/:ids", h.FindByID)
	rg.POST("/api/docs/:collection", h.Put)
	rg.DELETE("/api/docs/:collection/:ids", h.Remove)
}

// Find lists documents the caller may read. Query parameters:
// where (JSON filter), sort (comma list, '-' prefix for descending),
// limit, ci (case-insensitive sort).
func (h *DocsHandler) Find(c *gin.Context) {
	caller, okc := mustCaller(c)
	if !okc {
		return
	}
	where, err := parseWhere(c.Query("where"))
	if err != nil {
		writeError(c, "find", docstore.ErrUsage("malformed where filter"))
		return
	}
	docs, err := h.store.Find(c.Request.Context(), caller, c.Param("collection"), docstore.FindOptions{
		Where:           where,
		Sort:            parseSort(c.Query("sort")),
		Limit:           parseLimit(c.Query("limit")),
		CaseInsensitive: c.Query("ci") == "true",
	})
	if err != nil {
		writeError(c, "find", err)
		return
	}
	ok(c, "find", http.StatusOK, docs)
}

// FindByID fetches one document (or several, comma separated). A single
// unknown id yields an empty object rather than an error.
func (h *DocsHandler) FindByID(c *gin.Context) {
	caller, okc := mustCaller(c)
	if !okc {
		return
	}
	ids := splitIDs(c.Param("ids"))
	if len(ids) == 0 {
		writeError(c, "find", docstore.ErrUsage("no document id supplied"))
		return
	}
	if len(ids) == 1 {
		doc, err := h.store.FindOne(c.Request.Context(), caller, c.Param("collection"), ids[0])
		if err != nil {
			writeError(c, "find", err)
			return
		}
		ok(c, "find", http.StatusOK, doc)
		return
	}
	docs, err := h.store.Find(c.Request.Context(), caller, c.Param("collection"), docstore.FindOptions{IDs: ids})
	if err != nil {
		writeError(c, "find", err)
		return
	}
	ok(c, "find", http.StatusOK, docs)
}

// Put upserts one document, or a whole batch when the body is a JSON
// array. An explicit target id may be passed via ?id=.
func (h *DocsHandler) Put(c *gin.Context) {
	caller, okc := mustCaller(c)
	if !okc {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, "put", docstore.ErrUsage("unreadable request body"))
		return
	}
	collection := c.Param("collection")

	var batch []bson.M
	if err := json.Unmarshal(body, &batch); err == nil {
		result, err := h.store.PutBatch(c.Request.Context(), caller, collection, batch)
		if err != nil {
			writeError(c, "put", err)
			return
		}
		if n := len(result.SkippedIDs); n > 0 {
			metrics.BatchSkipped.Add(float64(n))
		}
		ok(c, "put", http.StatusOK, result)
		return
	}

	var payload bson.M
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(c, "put", docstore.ErrUsage("body must be a JSON object or array"))
		return
	}
	doc, err := h.store.Put(c.Request.Context(), caller, collection, payload, c.Query("id"))
	if err != nil {
		writeError(c, "put", err)
		return
	}
	ok(c, "put", http.StatusOK, doc)
}

// removeBody carries the optional reference descriptors checked before a
// delete is allowed to proceed.
type removeBody struct {
	UsedBy []refguard.Descriptor `json:"usedBy"`
}

// Remove deletes the named documents. With ?recoverable=true the documents
// move to the trash instead of being erased.
func (h *DocsHandler) Remove(c *gin.Context) {
	caller, okc := mustCaller(c)
	if !okc {
		return
	}
	var rb removeBody
	if c.Request.Body != nil {
		// body is optional, a decode failure just means no descriptors
		_ = c.ShouldBindJSON(&rb)
	}
	err := h.store.Remove(c.Request.Context(), caller, c.Param("collection"),
		splitIDs(c.Param("ids")), c.Query("recoverable") == "true", rb.UsedBy)
	if err != nil {
		writeError(c, "remove", err)
		return
	}
	ok(c, "remove", http.StatusNoContent, nil)
}
