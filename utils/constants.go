package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Campaign delivery constants
const (
	// MaxPreviewRecipients caps how many recipients audience resolution returns
	MaxPreviewRecipients = 500

	// DefaultClaimBatchLimit caps how many campaigns one worker cycle claims
	DefaultClaimBatchLimit = 10

	// DefaultWorkerPollInterval is the delivery worker poll tick
	DefaultWorkerPollInterval = 30 * time.Second

	// UnnamedRecipientPlaceholder is used when the student directory carries no name column
	UnnamedRecipientPlaceholder = "Student"

	// DirectoryCapabilitiesCacheKey is the redis key holding the probed students schema
	DirectoryCapabilitiesCacheKey = "directory:capabilities"
)
