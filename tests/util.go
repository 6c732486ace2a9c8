// Package testutil provides shared test bootstrap helpers.
package testutil

import (
	"net/mail"
	"time"

	"github.com/trezcool/darasa/core"
)

// NewTestConfig sets core.Conf to a self-contained TEST configuration and
// returns it. Call from TestMain before exercising services.
func NewTestConfig() *core.Config {
	core.Conf = &core.Config{
		Env:                       "TEST",
		Debug:                     false,
		TestMode:                  true,
		Build:                     "test",
		AppName:                   "Darasa",
		SecretKey:                 []byte("secret"),
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Darasa", Address: "noreply@localhost"},
		JWTExpirationDelta:        7 * 24 * time.Hour,
		JWTRefreshExpirationDelta: 4 * time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server:                    core.ServerConfig{Port: "8000"},
		Database:                  core.DatabaseConfig{Engine: "postgres", Name: "darasa_test"},
	}
	return core.Conf
}
