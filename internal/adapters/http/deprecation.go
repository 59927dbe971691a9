package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedField marks a request field kept only for older clients.
type DeprecatedField struct {
	Name        string
	Replacement string
	SunsetDate  time.Time // zero when no removal date is announced
	DocsURL     string
}

// legacyBlockArea is the single-zone field superseded by block_areas.
var legacyBlockArea = DeprecatedField{
	Name:        "block_area",
	Replacement: "block_areas",
	DocsURL:     "/docs#/route",
}

// markDeprecated adds RFC 8594 Deprecation/Sunset and RFC 8288 Link headers.
func markDeprecated(c *fiber.Ctx, f DeprecatedField) {
	c.Set("Deprecation", "true")
	if !f.SunsetDate.IsZero() {
		c.Set("Sunset", f.SunsetDate.UTC().Format(time.RFC1123))
	}
	if f.DocsURL != "" {
		c.Set("Link", fmt.Sprintf(`<%s>; rel="deprecation"`, f.DocsURL))
	}
	c.Set("Warning", fmt.Sprintf(`299 - "Field %s is deprecated, use %s"`, f.Name, f.Replacement))
}
