package instance

import (
	"os"
	"strings"

	"github.com/threadloom/storefront-backend/pkg/env"
)

const fallbackID = "local"

// GetID names the running process for logs and lock ownership. DYNO and
// WORKER_ID win over the hostname.
func GetID() string {
	for _, key := range []string{"DYNO", "WORKER_ID"} {
		if id := strings.TrimSpace(env.Get(key, "")); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
