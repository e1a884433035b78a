package respond

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 JSON body.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// NoContent ends a mutation that has nothing to return.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Markdown sends body as a downloadable markdown file. The filename is RFC 5987 encoded
// so non-ASCII product names survive.
func Markdown(c *gin.Context, filename, body string) {
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(body))
}
