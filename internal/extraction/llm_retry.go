package extraction

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"findoc-backend/internal/llm"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries the oracle once on timeouts and transient network
// failures. Anything else fails fast; the extraction chain treats oracle
// failure as zero records anyway.
type retryingLLM struct {
	base llm.Client
}

func newRetryingLLM(base llm.Client) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{base: base}
}

func (r retryingLLM) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := r.base.Complete(ctx, prompt)
	if err == nil || !shouldRetryLLM(err) {
		return resp, err
	}

	log.Printf("llm retry attempt=1 error=%s", strings.ReplaceAll(err.Error(), "\n", " "))
	select {
	case <-time.After(llmRetryBaseDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Complete(ctx, prompt)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, llm.ErrNotConfigured) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
