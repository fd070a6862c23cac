package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GetClientIP determines the likely client IP address considering proxies.
// The forwarding headers are client-controlled, so this value is for audit
// logging only and must never feed an authorization decision; those use
// c.IP(), which honors forwarded addresses only from configured trusted
// proxies.
func GetClientIP(c *fiber.Ctx) string {
	// 1. Check for Cloudflare header
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	// 2. First entry of X-Forwarded-For is the originating client
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	// 3. Fall back to the direct remote address
	return c.IP()
}

// wantsJSON reports whether the client asked for the JSON variant of an
// endpoint that defaults to an HTML response.
func wantsJSON(c *fiber.Ctx) bool {
	if c.Query("response") == "json" {
		return true
	}
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}
