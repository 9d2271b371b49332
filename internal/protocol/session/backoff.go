package session

import "time"

// NextBackoffDelay returns the wait after failed attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := cfg.Base + time.Duration(attempt)*cfg.Step
	if delay <= 0 {
		return 0
	}
	return delay
}
