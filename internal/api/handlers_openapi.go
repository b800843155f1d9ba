package api

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
)

//go:embed openapi/openapi.yaml
var openAPISpec []byte

var openAPIETag = fmt.Sprintf(`"%016x"`, xxhash.Sum64(openAPISpec))

// ServeOpenAPISpec serves the OpenAPI document as YAML. Clients revalidate
// with If-None-Match.
// GET /api/v1/openapi.yaml
func (h *Handlers) ServeOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", openAPIETag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.Header.Get("If-None-Match") == openAPIETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Humanizer API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: '/api/v1/openapi.yaml', dom_id: '#swagger-ui', tryItOutEnabled: true });
  </script>
</body>
</html>`

// ServeSwaggerUI serves an interactive viewer for the OpenAPI document.
// GET /api/v1/docs
func (h *Handlers) ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(swaggerUIHTML))
}
