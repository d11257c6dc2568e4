// Package connectors holds integrations with external systems that feed or
// act on CoWorker's data: a watched drop directory, GitHub pull requests and
// Google Calendar.
package connectors
