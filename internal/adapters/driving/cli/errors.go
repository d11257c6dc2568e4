package cli

import "errors"

var (
	errIngestionNotConfigured = errors.New("ingestion service not configured")
	errQueryNotConfigured     = errors.New("query service not configured")
	errCalendarNotConfigured  = errors.New("calendar service not configured")
	errDiffNotConfigured      = errors.New("diff service not configured")
	errSettingsNotConfigured  = errors.New("settings service not configured")
)
