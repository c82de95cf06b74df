// Package studies parses studies command flags and launches the service.
package studies

import (
	"context"
	"flag"
	"os"

	entrypoint "github.com/louisbranch/studies/internal/platform/cmd"
	"github.com/louisbranch/studies/internal/services/studies/api/mcpserver"
	"github.com/louisbranch/studies/internal/services/studies/app"
)

// envFileVar names the dotenv file loaded before the environment is read.
const envFileVar = "STUDIES_ENV_FILE"

// Config holds studies command configuration.
type Config struct {
	DBPath      string `env:"STUDIES_DB_PATH"        envDefault:"data/studies.db"`
	MOTDBaseURL string `env:"STUDIES_MOTD_BASE_URL"  envDefault:"https://jsonplaceholder.typicode.com/"`
	Locale      string `env:"STUDIES_LOCALE"         envDefault:"en-US"`
	AgendaCron  string `env:"STUDIES_AGENDA_CRON"    envDefault:"0 0 7 * * *"`
	Transport   string `env:"STUDIES_MCP_TRANSPORT"  envDefault:"stdio"`
	HTTPAddr    string `env:"STUDIES_MCP_HTTP_ADDR"  envDefault:"localhost:8093"`
}

// ParseConfig loads the dotenv file, then the environment, then flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database path (STUDIES_DB_PATH)")
	fs.StringVar(&cfg.MOTDBaseURL, "motd-url", "", "Message of the day base URL (STUDIES_MOTD_BASE_URL)")
	fs.StringVar(&cfg.Locale, "locale", "", "Locale for user-facing text (STUDIES_LOCALE)")
	fs.StringVar(&cfg.AgendaCron, "agenda-cron", "", "Agenda log schedule, seconds first; empty disables (STUDIES_AGENDA_CRON)")
	fs.StringVar(&cfg.Transport, "transport", "", "Transport type: stdio or http (STUDIES_MCP_TRANSPORT)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", "", "HTTP server address for the http transport (STUDIES_MCP_HTTP_ADDR)")

	envFile := os.Getenv(envFileVar)
	if envFile == "" {
		envFile = ".env"
	}
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args, envFile); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the studies service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceStudies, func(ctx context.Context) error {
		return app.Run(ctx, app.Config{
			DBPath:      cfg.DBPath,
			MOTDBaseURL: cfg.MOTDBaseURL,
			Locale:      cfg.Locale,
			AgendaCron:  cfg.AgendaCron,
			MCP:         mcpserver.Config{Transport: cfg.Transport, HTTPAddr: cfg.HTTPAddr},
		})
	})
}
