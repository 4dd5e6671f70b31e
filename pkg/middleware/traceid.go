package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceHeader carries the request trace id. It is echoed on every
// response so a client can quote it when reporting a failed request.
const TraceHeader = "X-Trace-ID"

const traceContextKey = "trace_id"

// TraceIDMiddleware tags each request with a trace id and stores it in
// the gin context for the response envelope. An id supplied by the caller
// is kept, so a gateway in front can correlate its own logs with ours.
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceContextKey, traceID)
		c.Writer.Header().Set(TraceHeader, traceID)
		c.Next()
	}
}
