package middleware

import "strings"

// MaskSessionID masks a session id for logs: full ids never hit log files.
func MaskSessionID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
