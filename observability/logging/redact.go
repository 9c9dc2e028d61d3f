package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys the ledger logs in the clear: identifiers and addresses are public on
// the chain the collection settles to.
var plainKeys = map[string]struct{}{
	"service":        {},
	"env":            {},
	"error":          {},
	"reason":         {},
	"network":        {},
	"oraclemode":     {},
	"coordinator":    {},
	"owner":          {},
	"requester":      {},
	"requestid":      {},
	"assetid":        {},
	"category":       {},
	"subscriptionid": {},
}

// IsAllowlisted reports whether key may be logged without masking.
func IsAllowlisted(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField redacts value unless key is allowlisted or value is empty.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskEndpoint logs only the scheme and host of a URL. Webhook and pinning
// endpoints often carry credentials in userinfo, path or query.
func MaskEndpoint(key, raw string) slog.Attr {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return slog.String(key, "")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return slog.String(key, RedactedValue)
	}
	masked := u.Scheme + "://" + u.Host
	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		masked += "/" + RedactedValue
	}
	return slog.String(key, masked)
}
