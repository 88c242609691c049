package models

import "strings"

const keyPrefix = "checkpoint:rl:"

// SanitizeKeySegment escapes the key delimiter so a crafted identifier
// cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// IPKey is the bucket key for a client IP on a route class.
func IPKey(class, ip string) string {
	return keyPrefix + SanitizeKeySegment(class) + ":ip:" + SanitizeKeySegment(ip)
}
