package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
)

// RequestID propagates the caller's X-Request-Id or assigns a fresh one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				log.Warnf("[requestID] failed to generate request id: %v", err)
			} else {
				reqID = id.String()
			}
		}
		c.Set(requestIDKey, reqID)
		c.Writer.Header().Set(RequestIDHeader, reqID)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	reqID, _ := c.Get(requestIDKey)
	id, _ := reqID.(string)
	return id
}
