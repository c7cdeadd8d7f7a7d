package commands

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/teranos/cronstore/cache"
	"github.com/teranos/cronstore/connector"
	"github.com/teranos/cronstore/db"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
	"github.com/teranos/cronstore/logger"
	"github.com/teranos/cronstore/schedules"
)

// runtime is an opened store wired for one tenant
type runtime struct {
	db        *sql.DB
	registry  *schedules.Registry
	store     *jobs.Store
	engine    *jobs.Engine
	connector *connector.Connector
	watcher   *schedules.Watcher
}

// open opens and migrates the configured database and wires the store,
// query engine and connector for the configured tenant
func (a *app) open() (*runtime, error) {
	registry, err := a.registry()
	if err != nil {
		return nil, err
	}

	database, err := openDatabase(a.cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}

	c, err := a.cache()
	if err != nil {
		database.Close()
		return nil, err
	}

	store := jobs.NewStore(database, c, registry, logger.Logger)
	engine := jobs.NewEngine(store)
	rt := &runtime{
		db:       database,
		registry: registry,
		store:    store,
		engine:   engine,
		connector: connector.New(store, engine, registry, a.cfg.Site.Default, logger.Logger,
			connector.WithBulkLimit(a.cfg.Reconcile.BulkLimit),
			connector.WithDuplicateWindow(a.cfg.Reconcile.DuplicateWindow()),
		),
	}

	if a.cfg.Schedules.Watch {
		w, err := schedules.NewWatcher(a.cfg.Schedules.File, registry, logger.Logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		w.Start()
		rt.watcher = w
	}
	return rt, nil
}

// Close releases the watcher and the database
func (rt *runtime) Close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	rt.db.Close()
}

// openDatabase opens and migrates a database at dbPath
func openDatabase(dbPath string) (*sql.DB, error) {
	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// registry returns the built-in frequencies, or the configured schedules file
func (a *app) registry() (*schedules.Registry, error) {
	if a.cfg.Schedules.File == "" {
		return schedules.NewRegistry(), nil
	}
	table, err := schedules.LoadFile(a.cfg.Schedules.File)
	if err != nil {
		return nil, err
	}
	return schedules.NewRegistry(table...), nil
}

func (a *app) cache() (cache.Cache, error) {
	if !a.cfg.Cache.Enabled {
		return cache.Nop, nil
	}
	return cache.NewLRU(a.cfg.Cache.Size)
}

// waitForSignal blocks until ctx ends or the process is interrupted
func waitForSignal(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}
}
