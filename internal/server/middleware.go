package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/pkg/log"
	"github.com/YuminosukeSato/weldsim/weld"
)

const requestIDHeader = "X-Request-ID"

// requestID propagates the caller's request id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(log.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// cors allows every origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func accessLog(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			log.RequestIDKey, c.GetString(log.RequestIDKey),
			log.MethodKey, c.Request.Method,
			log.PathKey, c.FullPath(),
			log.StatusKey, c.Writer.Status(),
			log.ClientIPKey, c.ClientIP(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// recovery turns a handler panic into the structured 500 response.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := errors.NewPredictionError(c.FullPath(), errors.NewPanicError(c.FullPath(), recovered))
		s.fail(c, err)
	})
}

// fail writes err as a 500 response and logs it.
func (s *Server) fail(c *gin.Context, err error) {
	resp := weld.ToErrorResponse(err)
	s.logger.Error("request error", err,
		log.RequestIDKey, c.GetString(log.RequestIDKey),
		log.PathKey, c.FullPath(),
		log.ErrorKindKey, resp.Kind)
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}
