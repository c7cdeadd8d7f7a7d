package jobs

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/teranos/cronstore/cache"
	"github.com/teranos/cronstore/logger"
)

// Result holds either hydrated jobs or, for raw queries, storage rows.
type Result struct {
	Jobs []*Job
	Rows []Row
}

// Engine answers Queries, caching row sets per tenant under the tenant's
// current generation token. A mutation bumps the token and every earlier
// entry becomes unreachable.
type Engine struct {
	store *Store
	cache cache.Cache
	log   *zap.SugaredLogger
	now   func() time.Time
	group singleflight.Group
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithEngineClock overrides the time used to pin past/future filters
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a query engine over store, sharing its cache.
func NewEngine(store *Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store: store,
		cache: store.cache,
		log:   logger.AddCacheSymbol(store.log),
		now:   store.now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the store the engine reads from.
func (e *Engine) Store() *Store {
	return e.store
}

// Query resolves q into jobs, or rows when q.Raw is set.
func (e *Engine) Query(ctx context.Context, q Query) (*Result, error) {
	rq, err := q.resolve(e.now())
	if err != nil {
		return nil, err
	}

	rows, err := e.rows(ctx, rq)
	if err != nil {
		return nil, err
	}

	if q.Raw {
		out := make([]Row, len(rows))
		copy(out, rows)
		return &Result{Rows: out}, nil
	}
	jobs, err := hydrateAll(rows, e.store.registry)
	if err != nil {
		return nil, err
	}
	return &Result{Jobs: jobs}, nil
}

// Jobs is Query returning hydrated jobs only.
func (e *Engine) Jobs(ctx context.Context, q Query) ([]*Job, error) {
	q.Raw = false
	res, err := e.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return res.Jobs, nil
}

// ForSite lists every waiting and running job of a tenant, optionally with
// completed and failed ones, soonest first.
func (e *Engine) ForSite(ctx context.Context, site int64, includeCompleted, includeFailed bool) ([]*Job, error) {
	statuses := []Status{StatusWaiting, StatusRunning}
	if includeCompleted {
		statuses = append(statuses, StatusCompleted)
	}
	if includeFailed {
		statuses = append(statuses, StatusFailed)
	}
	return e.Jobs(ctx, Query{Site: site, Statuses: statuses})
}

func (e *Engine) rows(ctx context.Context, rq *resolvedQuery) ([]Row, error) {
	query, params := rq.sql()
	ns := SiteNamespace(rq.Site)

	gen, err := e.cache.Generation(ctx, ns)
	if err != nil {
		e.log.Debugw("Cache generation unavailable, reading store", logger.FieldSite, rq.Site, logger.FieldError, err)
		return e.store.selectRows(ctx, query, params)
	}
	key := "query:" + rq.fingerprint() + ":" + gen

	if data, ok := e.store.cacheGet(ctx, ns, key); ok {
		var rows []Row
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
	}

	v, err, shared := e.group.Do(ns+"\x00"+key, func() (interface{}, error) {
		// Shared by every caller waiting on key, so no one caller may cancel it
		readCtx := context.WithoutCancel(ctx)
		rows, err := e.store.selectRows(readCtx, query, params)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(rows); err == nil {
			e.store.cacheSet(readCtx, ns, key, data)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.log.Debugw("Coalesced query", logger.FieldSite, rq.Site, logger.FieldGeneration, gen)
	}
	return v.([]Row), nil
}
