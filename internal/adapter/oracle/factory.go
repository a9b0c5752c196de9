package oracle

import (
	"log"
	"os"
	"time"
)

const (
	// EnvFortunaMode is the environment variable name for mode selection.
	EnvFortunaMode = "FORTUNA_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewOracle creates an oracle client based on the FORTUNA_MODE
// environment variable. If FORTUNA_MODE=MOCK or no base URL is
// configured, returns a MockOracle; otherwise returns a real Client.
func NewOracle(baseURL, apiKey string, timeout time.Duration) Oracle {
	if os.Getenv(EnvFortunaMode) == ModeMock || baseURL == "" {
		log.Println("using mock oracle client")
		return NewMockOracle()
	}
	return NewClient(baseURL, apiKey, timeout)
}
