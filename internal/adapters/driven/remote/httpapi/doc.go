// Package httpapi submits captured records to the remote authority over HTTP.
//
// Each record is POSTed to {base}/records with its client ID as the
// Idempotency-Key, so a replay after a crash is acknowledged rather than
// duplicated. Responses are classified into domain.SyncError kinds and
// requests are paced by a token bucket limiter.
package httpapi
