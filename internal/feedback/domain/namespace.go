package domain

import "strings"

// APIKeyPrefix marks tokens minted by the key registry.
const APIKeyPrefix = "fdk_"

// Namespace partitions feedback data. The zero value is the global
// namespace used by the admin board; every issued API key owns another one.
type Namespace struct {
	apiKey string
}

// Global is the admin namespace.
var Global = Namespace{}

// ForAPIKey returns the namespace owned by key. An empty key maps to Global.
func ForAPIKey(key string) Namespace {
	return Namespace{apiKey: strings.TrimSpace(key)}
}

// IsGlobal reports whether n is the admin namespace.
func (n Namespace) IsGlobal() bool { return n.apiKey == "" }

// APIKey returns the owning key, or "" for Global.
func (n Namespace) APIKey() string { return n.apiKey }

// String is used in signal routing keys and logs.
func (n Namespace) String() string {
	if n.IsGlobal() {
		return "global"
	}
	return n.apiKey
}

// ParseNamespace inverts String.
func ParseNamespace(s string) Namespace {
	if s == "" || s == "global" {
		return Global
	}
	return ForAPIKey(s)
}

// IsAPIKey reports whether token has the registry's key shape.
func IsAPIKey(token string) bool {
	return strings.HasPrefix(token, APIKeyPrefix) && len(token) > len(APIKeyPrefix)
}
