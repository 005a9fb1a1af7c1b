package httperr

import (
	resdto "concert-booking/internal/handler/dto/response"
	"concert-booking/internal/pkg/outcome"

	"github.com/gin-gonic/gin"
)

// Response pairs an HTTP status with the typed error body so the error
// middleware can replay it when a handler aborted without writing.
type Response struct {
	Status int
	Body   resdto.ErrorResponse
}

// AbortWithCode writes the typed error body for code and records the
// original error on the context for request logging.
func AbortWithCode(c *gin.Context, code outcome.Code, err error, msg string) {
	AbortWithBody(c, code, err, resdto.NewErrorResponse(code, msg))
}

// AbortWithBody is AbortWithCode for callers that need extra fields in
// the body, such as the offending seat ids on a reservation conflict.
func AbortWithBody(c *gin.Context, code outcome.Code, err error, body resdto.ErrorResponse) {
	if err == nil {
		panic("AbortWithBody: err cannot be nil")
	}

	status := code.HTTPStatus()
	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: Response{Status: status, Body: body},
	})
	c.AbortWithStatusJSON(status, body)
}
