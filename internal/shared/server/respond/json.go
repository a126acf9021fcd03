package respond

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// MessageBody is the payload for endpoints that only confirm an action.
type MessageBody struct {
	Message string `json:"message"`
}

// OK writes a 200 JSON response.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Message writes {"message": msg} with status 200.
func Message(c *gin.Context, msg string) {
	OK(c, MessageBody{Message: msg})
}

// Attachment streams content as a download named filename.
func Attachment(c *gin.Context, filename, contentType string, content []byte) {
	name := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(filename)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Length", strconv.Itoa(len(content)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, content)
}
