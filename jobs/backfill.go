package jobs

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/cronstore/cache"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/logger"
	"github.com/teranos/cronstore/schedules"
)

// BackfillSchedules stores a schedule label on unlabeled recurring jobs whose
// interval matches a registered frequency. Finished jobs are left alone.
// Earlier schedules in table win an interval collision. Returns rows updated.
func BackfillSchedules(ctx context.Context, db *sql.DB, c cache.Cache, table []schedules.Schedule, log *zap.SugaredLogger) (int64, error) {
	if c == nil {
		c = cache.Nop
	}
	log = logger.AddDBSymbol(logger.OrNop(log))

	var total int64
	touched := make(map[int64]bool)
	for _, s := range table {
		sites, err := backfillSites(ctx, db, s.Interval)
		if err != nil {
			return total, err
		}
		if len(sites) == 0 {
			continue
		}

		res, err := db.ExecContext(ctx, `
			UPDATE jobs SET schedule = ?
			WHERE schedule IS NULL AND interval = ? AND status NOT IN ('completed', 'failed')`,
			s.Name, s.Interval,
		)
		if err != nil {
			return total, errors.Wrapf(err, "failed to backfill schedule %s", s.Name)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, errors.Wrap(err, "failed to read affected rows")
		}
		total += n
		for _, site := range sites {
			touched[site] = true
		}
	}

	for site := range touched {
		// A failed bump only leaves labels derived rather than stored
		if _, err := c.BumpGeneration(ctx, SiteNamespace(site)); err != nil {
			log.Warnw("Failed to bump cache generation after backfill", logger.FieldSite, site, logger.FieldError, err)
		}
	}
	if total > 0 {
		log.Infow("Backfilled schedule labels", logger.FieldCount, total)
	}
	return total, nil
}

func backfillSites(ctx context.Context, db *sql.DB, interval int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT site FROM jobs
		WHERE schedule IS NULL AND interval = ? AND status NOT IN ('completed', 'failed')`,
		interval,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find jobs to backfill")
	}
	defer rows.Close()

	var sites []int64
	for rows.Next() {
		var site int64
		if err := rows.Scan(&site); err != nil {
			return nil, errors.Wrap(err, "failed to scan site")
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}
