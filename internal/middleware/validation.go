package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yigit/classroom/internal/app/models/dto"
)

// BindJSON binds the request body into obj and writes a 400 response when it fails.
// It returns false when the handler should stop.
func BindJSON(c *gin.Context, obj interface{}) bool {
	return bindWith(c, obj, binding.JSON)
}

// BindForm binds multipart or urlencoded form fields into obj
func BindForm(c *gin.Context, obj interface{}) bool {
	return bindWith(c, obj, binding.FormMultipart)
}

// BindQuery binds query parameters into obj
func BindQuery(c *gin.Context, obj interface{}) bool {
	return bindWith(c, obj, binding.Query)
}

func bindWith(c *gin.Context, obj interface{}, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}
