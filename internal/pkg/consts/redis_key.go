package consts

const (
	StatsSnapshotKey   = "media:stats:snapshot"
	TokenRevokedKey    = "auth:token:revoked:"
	UploadRateLimitKey = "media:upload:limit:"
)

const (
	CleanupJobLock = "job:cleanup:lock:"
)
