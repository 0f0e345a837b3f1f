package util

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type HTTPError struct {
	Status  int
	Message string
}

func (he *HTTPError) Error() string {
	return fmt.Sprintf("%v (statusCode=%v)", he.Message, he.Status)
}

var MalformedIdHTTPErr = &HTTPError{
	Message: "id malformed",
	Status:  http.StatusBadRequest,
}

// BuildDbHTTPErr logs the underlying store failure and returns the opaque
// infrastructure error surfaced to callers
func BuildDbHTTPErr(err error) *HTTPError {
	log.Errorf("[db] database error occurred: %v", err)
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "database error",
	}
}

func BuildNotFoundErr(entity string) *HTTPError {
	return &HTTPError{
		Status:  http.StatusNotFound,
		Message: entity + " not found",
	}
}

func BuildValidationErr(message string) *HTTPError {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

func BuildJSONBindHTTPErr(err error) *HTTPError {
	log.Debugf("[req] malformed request body: %v", err)
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "malformed request body",
	}
}

// HandleHTTPErrorRes writes the error envelope. Break the route after calling
// this function.
func HandleHTTPErrorRes(c *gin.Context, err *HTTPError) {
	c.JSON(err.Status, gin.H{
		"success": false,
		"message": err.Message,
	})
}

type HandlerFunc func(c *gin.Context) (interface{}, *HTTPError)

type HandlerOpts struct{}

// HandlerWrapper lifts a (data, *HTTPError) handler into a gin.HandlerFunc
// emitting the standard response envelope
func HandlerWrapper(handler HandlerFunc, opts *HandlerOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, httpErr := handler(c)
		if httpErr != nil {
			HandleHTTPErrorRes(c, httpErr)
			c.Abort()
			return
		}
		res := gin.H{"success": true}
		if data != nil {
			res["data"] = data
		}
		c.JSON(http.StatusOK, res)
	}
}
