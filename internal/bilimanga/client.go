package bilimanga

import (
	"github.com/rs/zerolog"

	"github.com/billmal071/mangaunlock/internal/config"
)

// NewClient creates a gateway client from the current configuration
func NewClient(log *zerolog.Logger) Client {
	cfg := config.Get()

	return NewAPIClient(Options{
		MangaBaseURL:   cfg.Gateway.MangaBaseURL,
		AccountBaseURL: cfg.Gateway.AccountBaseURL,
		UserAgent:      cfg.Gateway.UserAgent,
		Timeout:        cfg.Gateway.Timeout,
		SearchPageSize: cfg.Search.PageSize,
		Logger:         log,
	})
}
