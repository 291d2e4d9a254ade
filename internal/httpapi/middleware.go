package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vault-md/versioned/internal/readingmode"
)

// ReadingModeKey is the gin context key holding the request's reading state.
const ReadingModeKey = "readingMode"

// Query parameters read by ReadingMode.
const (
	ParamStage        = "stage"
	ParamArchiveDate  = "archiveDate"
	ParamArchiveStage = "archiveStage"
)

// ReadingMode installs a fresh readingmode.State on every request.
//
// ?stage=Draft|Live selects a stage. ?archiveDate=YYYY-MM-DD selects the
// archive of ?archiveStage (falling back to ?stage, then Draft) at that
// date. Without either the request reads defaultMode. Malformed values are
// rejected with 400.
func ReadingMode(defaultMode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := readingmode.Resolve(
			defaultMode,
			readingmode.Stage(c.Query(ParamStage)),
			c.Query(ParamArchiveDate),
			readingmode.Stage(c.Query(ParamArchiveStage)),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.Set(ReadingModeKey, state)
		c.Request = c.Request.WithContext(readingmode.NewContext(c.Request.Context(), state))
		c.Next()
	}
}

// RequestLogger logs one line per request at debug level, and at warn level
// for server errors.
func RequestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"mode":    readingmode.Current(c.Request.Context()),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
