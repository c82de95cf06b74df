// Package app assembles the studies process: the SQLite store, the
// repository, the MCP tool server and the agenda scheduler.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/studies/internal/platform/i18n/catalog"
	"github.com/louisbranch/studies/internal/services/studies/api/mcpserver"
	"github.com/louisbranch/studies/internal/services/studies/motd"
	"github.com/louisbranch/studies/internal/services/studies/projection"
	"github.com/louisbranch/studies/internal/services/studies/repository"
	"github.com/louisbranch/studies/internal/services/studies/storage/sqlite"
	"golang.org/x/sync/errgroup"
)

// Config holds the process settings.
type Config struct {
	DBPath      string
	MOTDBaseURL string
	Locale      string
	AgendaCron  string
	MCP         mcpserver.Config
}

// Run serves the studies tools until ctx ends or the MCP transport stops.
func Run(ctx context.Context, cfg Config) error {
	catalog.Register()
	locale := catalog.Match(cfg.Locale)

	if cfg.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("studies store close: %v", err)
		}
	}()

	fetcher, err := motd.NewClient(cfg.MOTDBaseURL, nil)
	if err != nil {
		return err
	}
	repo, err := repository.New(store, fetcher)
	if err != nil {
		return err
	}

	server, err := mcpserver.New(ctx, repo, mcpserver.WithLocale(locale))
	if err != nil {
		return err
	}
	defer server.Close()

	days := projection.NewAgenda(ctx, repo, time.Now)
	defer days.Close()
	job, err := NewAgendaJob(cfg.AgendaCron, days, locale)
	if err != nil {
		return err
	}

	log.Printf("studies serving MCP over %s, database %s", transportName(cfg.MCP.Transport), cfg.DBPath)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		// A closed stdio session ends the process.
		defer cancel()
		return mcpserver.Run(groupCtx, cfg.MCP, server)
	})
	group.Go(func() error {
		return job.Run(groupCtx)
	})
	return group.Wait()
}

func transportName(transport string) string {
	if transport == "" {
		return mcpserver.TransportStdio
	}
	return transport
}
