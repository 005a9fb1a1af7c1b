package middleware

import (
	"log/slog"
	"net/http"

	"concert-booking/internal/handler/dto/response"
	"concert-booking/internal/handler/httperr"
	"concert-booking/internal/pkg/errs"
	"concert-booking/internal/pkg/outcome"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		// Search backward through the error stack
		for i := len(c.Errors) - 1; i >= 0; i-- {
			err := c.Errors[i]

			if err.IsType(gin.ErrorTypePublic) {
				if resp, ok := err.Meta.(httperr.Response); ok {
					c.JSON(resp.Status, resp.Body)
					return
				}
			}
		}
		if status := c.Writer.Status(); status != http.StatusOK {
			c.Status(status)
			c.Writer.WriteHeaderNow()
			return
		}
		// Nothing handled the error; log the cause with its stack
		// before masking it as a 500.
		if last := c.Errors.Last(); last != nil {
			slog.Error("未処理のエラーが発生しました",
				"path", c.Request.URL.Path,
				"error", last.Err,
				"stack", errs.ExtractStackLines(last.Err, 10),
			)
		}
		c.JSON(http.StatusInternalServerError,
			response.NewErrorResponse(outcome.CodeInternalError, "internal server error"))
	}
}

func CustomRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("recovered from panic", "error", err, "path", c.Request.URL.Path)

				c.AbortWithStatusJSON(http.StatusInternalServerError,
					response.NewErrorResponse(outcome.CodeInternalError, "internal server error"))
			}
		}()
		c.Next()
	}
}
