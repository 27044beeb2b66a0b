package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// classifyStatus maps a non-success HTTP status to a SyncError.
//
// 408, 429 and 5xx are transient and network class. Every other 4xx is a
// permanent rejection.
func classifyStatus(status int, body string) *domain.SyncError {
	msg := strings.TrimSpace(body)
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	err := fmt.Errorf("remote responded %d: %s", status, msg)

	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return &domain.SyncError{Kind: domain.SyncErrNetwork, StatusCode: status, Err: err}
	case status >= 400:
		return &domain.SyncError{Kind: domain.SyncErrRejected, Permanent: true, StatusCode: status, Err: err}
	default:
		return &domain.SyncError{Kind: domain.SyncErrNetwork, StatusCode: status, Err: err}
	}
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil {
		return at.Sub(now)
	}
	return 0
}
