package logger

import (
	"github.com/rs/zerolog"
)

// LogRequest logs HTTP request information at a level matching the outcome
func LogRequest(method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		GetLogger().DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		GetLogger().WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	}
}

// LogAssetDownload logs asset download outcomes
func LogAssetDownload(contestID, assetID string, success bool, err error) {
	fields := map[string]interface{}{
		"contest_id": contestID,
		"asset_id":   assetID,
		"success":    success,
	}

	l := GetLogger().WithFields(fields)
	if err != nil {
		l.WithError(err).Error("Asset download failed")
	} else if success {
		l.Info("Asset download completed")
	} else {
		l.Warn("Asset download skipped")
	}
}

// LogPageFailure logs a page that exhausted its retries. The page is skipped,
// not fatal to the contest.
func LogPageFailure(contestID string, page int, err error) {
	GetLogger().WithFields(map[string]interface{}{
		"contest_id": contestID,
		"page":       page,
	}).WithError(err).Warn("Page fetch exhausted retries, skipping page")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
