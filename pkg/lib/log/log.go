// Package log provides the logging interface for the taskflow SDK.
//
// The SDK is silent unless a [Logger] is configured. Applications already using
// logrus can use [NewLogrus]:
//
//	logger := log.NewLogrus(logrus.NewEntry(logrus.StandardLogger()))
//	client, err := lib.New(ctx, lib.Config{Logger: logger})
//
// Any other logger can be plugged implementing [Logger], only the format methods
// (Infof, Warningf, Errorf, Debugf) need meaningful implementations.
package log

import (
	"github.com/sirupsen/logrus"

	"github.com/slok/taskflow/internal/log"
	internallogrus "github.com/slok/taskflow/internal/log/logrus"
)

// Logger is the interface that loggers must implement for the SDK.
type Logger = log.Logger

// Kv is a helper type for structured logging key-value pairs.
type Kv = log.Kv

// Noop discards all the logs, it's the default logger.
var Noop = log.Noop

// NewLogrus returns a Logger backed by a logrus entry.
func NewLogrus(l *logrus.Entry) Logger {
	return internallogrus.NewLogrus(l)
}
