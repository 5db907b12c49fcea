package http

import "regexp"

// Input validation constants
const (
	MaxTenantIDLength = 64
	MaxMessageLength  = 4096
	MaxBatchItems     = 500
)

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidTenantID checks if a tenant id is safe (alphanumeric + underscore +
// hyphen). Tenant ids name filesystem paths for credential stores, so
// anything else is rejected at the boundary.
func ValidTenantID(s string) bool {
	if s == "" || len(s) > MaxTenantIDLength {
		return false
	}
	return tenantIDPattern.MatchString(s)
}

// ValidMessage bounds message length; emptiness is checked downstream.
func ValidMessage(s string) bool {
	return len(s) <= MaxMessageLength
}
