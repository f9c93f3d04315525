package testutil

import (
	"github.com/bharathmeg/InsightHub/internal/config"

	"golang.org/x/crypto/bcrypt"
)

const JWTSecret = "test-secret-key-for-unit-tests"

// Config returns settings suitable for tests: the cheapest bcrypt cost and
// no external services.
func Config() *config.Config {
	return &config.Config{
		Env:                      "test",
		DatabaseDriver:           "sqlite",
		JWTSecret:                JWTSecret,
		JWTExpirationHours:       8,
		JWTRefreshHours:          24,
		BcryptCost:               bcrypt.MinCost,
		OTPTTLMinutes:            10,
		AnalyticsCacheTTLSeconds: 600,
		EmailMaxAttempts:         3,
		ReportCurrency:           "USD",
	}
}
