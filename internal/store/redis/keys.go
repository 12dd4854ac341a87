package redis

import "fmt"

const (
	// KeyPrefixEnrichment is the prefix for cached enrichment results
	KeyPrefixEnrichment = "canon:enrich:"
	// KeyPrefixTransferLock is the prefix for per-user transfer locks
	KeyPrefixTransferLock = "canon:lock:transfer:"
	// KeyPrefixLastRun is the prefix for the last transfer summary of a user
	KeyPrefixLastRun = "canon:transfer:last:"
)

// EnrichmentKey returns the Redis key for a cached enrichment (hash is the URL digest)
func EnrichmentKey(hash string) string {
	return KeyPrefixEnrichment + hash
}

// TransferLockKey returns the Redis key guarding a user's transfer runs
func TransferLockKey(userID string) string {
	return KeyPrefixTransferLock + userID
}

// LastRunKey returns the Redis key holding a user's last transfer summary
func LastRunKey(userID string) string {
	return KeyPrefixLastRun + userID
}

// ExtractUserID extracts the user id from a lock or last-run key
func ExtractUserID(key string) (string, error) {
	for _, prefix := range []string{KeyPrefixTransferLock, KeyPrefixLastRun} {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			return key[len(prefix):], nil
		}
	}
	return "", fmt.Errorf("invalid user key: %s", key)
}
