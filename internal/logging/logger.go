package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Pokatocz/quest-and-check/internal/config"
)

// Logger is the process-wide logger. It writes to stderr until Init runs.
var Logger = logrus.New()

var (
	once          sync.Once
	sentryEnabled bool
)

// Init configures Logger from cfg and, when a DSN is set, the Sentry client.
// Only the first call has any effect.
func Init(cfg config.LogConfig, environment string) {
	once.Do(func() {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		Logger.SetLevel(level)

		if cfg.Format == "json" {
			Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		} else {
			Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}

		var out io.Writer = os.Stderr
		if cfg.File != "" {
			out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			})
		}
		Logger.SetOutput(out)

		if cfg.SentryDSN != "" {
			err := sentry.Init(sentry.ClientOptions{
				Dsn:         cfg.SentryDSN,
				Environment: environment,
			})
			if err != nil {
				Logger.WithError(err).Warn("sentry init failed, error capture disabled")
			} else {
				sentryEnabled = true
			}
		}

		Logger.WithFields(logrus.Fields{
			"level":  level.String(),
			"format": cfg.Format,
			"file":   cfg.File,
			"sentry": sentryEnabled,
		}).Info("logger initialized")
	})
}

// Flush waits for buffered Sentry events to be delivered.
func Flush() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

// CaptureError logs err with the given context and forwards it to Sentry.
func CaptureError(errorType string, err error, fields logrus.Fields) {
	entry := Logger.WithFields(fields).WithField("error_type", errorType).WithError(err)
	entry.Error("operation failed")

	if !sentryEnabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", errorType)
		for k, v := range fields {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}
		if userID, ok := c.Get("user_id"); ok {
			fields["user_id"] = userID
		}

		entry := Logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
