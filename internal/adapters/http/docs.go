package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/greenroute/api"
)

const (
	docsPath    = "/docs"
	openAPIPath = "/docs/openapi.yaml"
)

// swaggerUIPage renders the bundled Swagger UI against openAPIPath.
const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>GreenRoute API · Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '` + openAPIPath + `', dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`

// SetupDocs serves Swagger UI and the embedded OpenAPI document.
func SetupDocs(app *fiber.App) {
	app.Get(docsPath, func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(swaggerUIPage)
	})

	app.Get(openAPIPath, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(api.OpenAPI)
	})
}
