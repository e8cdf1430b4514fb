package handlers

import (
	"net/http"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/docstore"
	"github.com/docgate/docgate/internal/trash"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// TrashHandler exposes the recoverable-delete vault.
type TrashHandler struct {
	vault *trash.Vault
	gate  *access.Gate
}

func NewTrashHandler(vault *trash.Vault, gate *access.Gate) *TrashHandler {
	return &TrashHandler{vault: vault, gate: gate}
}

func (h *TrashHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/api/trash", h.List)
	rg.GET("/api/trash/:id", h.Get)
	rg.POST("/api/trash/restore", h.Restore)
	rg.POST("/api/trash/:id/pluck", h.Pluck)
	rg.DELETE("/api/trash", h.Empty)
}

// accounts resolves the account scope a caller may see trash records for.
// Superusers see everything (nil scope).
func (h *TrashHandler) accounts(c *gin.Context, caller access.Caller) ([]string, error) {
	if caller.Superuser {
		return nil, nil
	}
	return h.gate.PermittedAccounts(c.Request.Context(), caller, access.LevelRead)
}

func (h *TrashHandler) List(c *gin.Context) {
	caller, okc := mustCaller(c)
	if !okc {
		return
	}
	accounts, err := h.accounts(c, caller)
	if err != nil {
		writeError(c, "trash_list", err)
		return
	}
	where, err := parseWhere(c.Query("where"))
	if err != nil {
		writeError(c, "trash_list", docstore.ErrUsage("malformed where filter"))
		return
	}
	records, err := h.vault.List(c.Request.Context(), trash.ListOptions{
		Accounts:        accounts,
		Where:           where,
		Sort:            parseSort(c.Query("sort")),
		Limit:           parseLimit(c.Query("limit")),
		CaseInsensitive: c.Query("ci") == "true",
	})
	if err != nil {
		writeError(c, "trash_list", err)
		return
	}
	ok(c, "trash_list", http.StatusOK, records)
}

func (h *TrashHandler) Get(c *gin.Context) {
	caller, okc := mustCaller(c)
	if !okc {
		return
	}
	accounts, err := h.accounts(c, caller)
	if err != nil {
		writeError(c, "trash_get", err)
		return
	}
	record, err := h.vault.Get(c.Request.Context(), c.Param("id"), accounts)
	if err != nil {
		writeError(c, "trash_get", err)
		return
	}
	ok(c, "trash_get", http.StatusOK, record)
}

type restoreBody struct {
	IDs []string `json:"ids"`
}

// Restore moves trash records back into their source collections.
func (h *TrashHandler) Restore(c *gin.Context) {
	_, okc := mustCaller(c)
	if !okc {
		return
	}
	var rb restoreBody
	if err := c.ShouldBindJSON(&rb); err != nil {
		writeError(c, "trash_restore", docstore.ErrUsage("body must name trash ids"))
		return
	}
	if err := h.vault.Restore(c.Request.Context(), rb.IDs); err != nil {
		writeError(c, "trash_restore", err)
		return
	}
	metrics.TrashOps.WithLabelValues("restore").Inc()
	ok(c, "trash_restore", http.StatusNoContent, nil)
}

// Pluck copies a trash record's snapshot back without removing it from
// the trash.
func (h *TrashHandler) Pluck(c *gin.Context) {
	_, okc := mustCaller(c)
	if !okc {
		return
	}
	doc, err := h.vault.Pluck(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "trash_pluck", err)
		return
	}
	metrics.TrashOps.WithLabelValues("pluck").Inc()
	ok(c, "trash_pluck", http.StatusOK, doc)
}

// Empty purges trash records permanently. Scoping query parameters:
// col (source collection), oid (original ids), id (trash ids). A purge
// with no scope at all wipes the whole trash and needs superuser rights.
func (h *TrashHandler) Empty(c *gin.Context) {
	caller, okc := mustCaller(c)
	if !okc {
		return
	}
	filter := trash.EmptyFilter{
		Collection:  c.Query("col"),
		OriginalIDs: splitIDs(c.Query("oid")),
		TrashIDs:    splitIDs(c.Query("id")),
	}
	unscoped := filter.Collection == "" && len(filter.OriginalIDs) == 0 && len(filter.TrashIDs) == 0
	if unscoped && !caller.Superuser {
		writeError(c, "trash_empty", docstore.ErrAuthorization("emptying the whole trash needs superuser rights"))
		return
	}
	if err := h.vault.Empty(c.Request.Context(), filter); err != nil {
		writeError(c, "trash_empty", err)
		return
	}
	metrics.TrashOps.WithLabelValues("empty").Inc()
	ok(c, "trash_empty", http.StatusNoContent, nil)
}
