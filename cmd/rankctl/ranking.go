package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hsdash/internal/domain/ranking"
	"hsdash/internal/platform/config"
	"hsdash/internal/platform/db"
	"hsdash/internal/platform/jobs"
)

var (
	flagTenant string
	flagPeriod string
)

var errTenantRequired = errors.New("--tenant is required")

type rankingDeps struct {
	pool     *pgxpool.Pool
	rankings *ranking.Service
	jobs     *jobs.Service
}

func (d rankingDeps) Close() {
	d.pool.Close()
}

// openRanking builds an uncached ranking service; the CLI always reads
// through to the database.
func openRanking(ctx context.Context, cfg *config.Config) (rankingDeps, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return rankingDeps{}, err
	}
	svc := ranking.NewService(ranking.NewStore(pool), ranking.WithBatchSize(cfg.RankingBatchSize))
	return rankingDeps{
		pool:     pool,
		rankings: svc,
		jobs:     jobs.New(pool, svc, 0, nil),
	}, nil
}

func parseTarget() (string, ranking.Period, error) {
	if flagTenant == "" {
		return "", ranking.Period{}, errTenantRequired
	}
	period, err := ranking.ParsePeriod(flagPeriod)
	if err != nil {
		return "", ranking.Period{}, fmt.Errorf("--period: %w", err)
	}
	return flagTenant, period, nil
}
