package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docgate — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the document and trash endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docgate", "version": "v0.1.0" },
  "paths": {
    "/api/docs/{collection}": {
      "get": {
        "summary": "List documents the caller may read",
        "parameters": [
          { "name": "collection", "in": "path", "required": true, "schema": {"type":"string"} },
          { "name": "where", "in": "query", "schema": {"type":"string"}, "description": "JSON filter" },
          { "name": "sort", "in": "query", "schema": {"type":"string"}, "description": "comma list, '-' prefix descends" },
          { "name": "limit", "in": "query", "schema": {"type":"integer"} },
          { "name": "ci", "in": "query", "schema": {"type":"boolean"}, "description": "case-insensitive sort" }
        ],
        "responses": { "200": { "description": "documents" } }
      },
      "post": {
        "summary": "Upsert one document or a batch (JSON array body)",
        "parameters": [
          { "name": "collection", "in": "path", "required": true, "schema": {"type":"string"} },
          { "name": "id", "in": "query", "schema": {"type":"string"}, "description": "explicit target id" }
        ],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object"} } } },
        "responses": { "200": { "description": "stored document, or batch counts" }, "401": { "description": "account not writable" } }
      }
    },
    "/api/docs/{collection}/{ids}": {
      "get": {
        "summary": "Fetch documents by id (comma separated)",
        "responses": { "200": { "description": "document(s); a single unknown id yields {}" } }
      },
      "delete": {
        "summary": "Delete documents, optionally recoverable",
        "parameters": [
          { "name": "recoverable", "in": "query", "schema": {"type":"boolean"} }
        ],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"usedBy":{"type":"array"}}} } } },
        "responses": { "204": { "description": "deleted" }, "423": { "description": "still referenced, usage report in body" } }
      }
    },
    "/api/trash": {
      "get": { "summary": "List trash records visible to the caller", "responses": { "200": { "description": "records" } } },
      "delete": { "summary": "Purge trash records (superuser when unscoped)", "responses": { "204": { "description": "purged" } } }
    },
    "/api/trash/{id}": {
      "get": { "summary": "Fetch one trash record", "responses": { "200": { "description": "record, {} when unknown" } } }
    },
    "/api/trash/restore": {
      "post": { "summary": "Restore trash records to their source collections", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"ids":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "204": { "description": "restored" } } }
    },
    "/api/trash/{id}/pluck": {
      "post": { "summary": "Copy a snapshot back without clearing the trash entry", "responses": { "200": { "description": "restored snapshot" }, "404": { "description": "unknown trash id" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
