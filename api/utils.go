package api

import (
	"regexp"
	"strings"
)

// maxErrorMessageLength bounds messages sent to clients.
const maxErrorMessageLength = 200

var (
	connectionStringRe = regexp.MustCompile(`(?:mongodb(?:\+srv)?|mysql|postgres|postgresql|redis)://[^\s"']+`)
	filePathRe         = regexp.MustCompile(`(?:[A-Za-z]:\\|/)(?:[^\\/:*?"<>|\s]+[\\/])+[^\\/:*?"<>|\s]+`)
	privateIPRe        = regexp.MustCompile(`\b(?:10|127)(?:\.\d{1,3}){3}(?::\d{1,5})?\b|\b172\.(?:1[6-9]|2[0-9]|3[01])(?:\.\d{1,3}){2}(?::\d{1,5})?\b|\b192\.168(?:\.\d{1,3}){2}(?::\d{1,5})?\b`)
	credentialRe       = regexp.MustCompile(`(?i)(password|secret|token|key|credential|auth)[:=]\s*["']?[^"'\s]+["']?`)
	controlCharRe      = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// sanitizeErrorMessage removes sensitive information from error messages before sending to clients
func sanitizeErrorMessage(message string) string {
	message = connectionStringRe.ReplaceAllString(message, "[DATABASE_CONNECTION]")
	message = filePathRe.ReplaceAllString(message, "[FILE_PATH]")
	message = privateIPRe.ReplaceAllString(message, "[PRIVATE_IP]")
	message = credentialRe.ReplaceAllString(message, "$1=[REDACTED]")

	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength-3] + "..."
	}

	return message
}

// sanitizeLogMessage removes sensitive information from log messages.
// Newlines are escaped so a client cannot forge extra log entries.
func sanitizeLogMessage(message string) string {
	message = strings.ReplaceAll(message, "\n", "\\n")
	message = strings.ReplaceAll(message, "\r", "\\r")
	message = strings.ReplaceAll(message, "\t", "\\t")
	message = controlCharRe.ReplaceAllString(message, "")

	message = credentialRe.ReplaceAllString(message, "$1=[REDACTED]")
	message = connectionStringRe.ReplaceAllString(message, "[DB_CONNECTION]")

	return message
}
