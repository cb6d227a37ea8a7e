// leaguectl is the single-file SQLite deployment of the dynasty engine:
// a factory over (store path, dynasty id, season year) plus one
// subcommand per Season Controller operation, for running a dynasty
// from a terminal without the HTTP API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/nfl-analytics/backend/internal/engineerr"
	"github.com/nfl-analytics/backend/internal/eventstore"
	"github.com/nfl-analytics/backend/internal/models"
	"github.com/nfl-analytics/backend/internal/schedule"
	"github.com/nfl-analytics/backend/internal/season"
	"github.com/nfl-analytics/backend/internal/store"
	"github.com/nfl-analytics/backend/pkg/logger"
)

func main() {
	var (
		command         string
		dbPath          string
		dynastyID       string
		seasonYear      int
		startDate       string
		teamsFlag       string
		defaultCapLimit int
		verbose         bool
	)

	flag.StringVar(&command, "command", "status", "init, seed-schedule, advance-day, advance-week, advance-phase, advance-season, status")
	flag.StringVar(&dbPath, "db", "./leaguectl.db", "path to the SQLite store file")
	flag.StringVar(&dynastyID, "dynasty", "", "dynasty id (required)")
	flag.IntVar(&seasonYear, "season", time.Now().Year(), "season year (for init/seed-schedule)")
	flag.StringVar(&startDate, "start", "", "dynasty start date YYYY-MM-DD (for init)")
	flag.StringVar(&teamsFlag, "teams", "", "comma separated team ids (for seed-schedule)")
	flag.IntVar(&defaultCapLimit, "cap-limit", 224_800_000, "default salary cap limit per team")
	flag.BoolVar(&verbose, "verbose", false, "debug-level logging")
	flag.Parse()

	if dynastyID == "" {
		log.Fatal("leaguectl: -dynasty is required")
	}

	logLevel := "info"
	if verbose {
		logLevel = "debug"
	}
	appLogger := logger.New(logger.Config{Level: logLevel, Format: "text"})

	ctx := context.Background()
	s, err := store.NewSQLite(dbPath)
	if err != nil {
		log.Fatalf("leaguectl: open store: %v", err)
	}
	defer s.Close()

	if err := store.EnsureSchema(ctx, s.DB()); err != nil {
		log.Fatalf("leaguectl: ensure schema: %v", err)
	}

	switch command {
	case "init":
		if err := runInit(ctx, s, dynastyID, seasonYear, startDate); err != nil {
			log.Fatalf("leaguectl: init: %v", err)
		}
		fmt.Printf("dynasty %q initialized at season %d\n", dynastyID, seasonYear)

	case "seed-schedule":
		if err := runSeedSchedule(ctx, s, dynastyID, seasonYear, teamsFlag); err != nil {
			log.Fatalf("leaguectl: seed-schedule: %v", err)
		}
		fmt.Println("regular season schedule seeded")

	case "status":
		state, err := season.LoadDynastyState(ctx, s, dynastyID)
		if err != nil {
			log.Fatalf("leaguectl: status: %v", err)
		}
		fmt.Printf("dynasty=%s season=%d phase=%s date=%s week=%d\n",
			state.Dynasty, state.Season, state.Phase, state.CurrentDate.Format("2006-01-02"), state.CurrentWeek)

	case "advance-day":
		ctrl, err := season.NewDefaultController(ctx, s, appLogger, nil, dynastyID, defaultCapLimit)
		if err != nil {
			log.Fatalf("leaguectl: %v", err)
		}
		result, err := ctrl.AdvanceDay(ctx)
		if err != nil {
			log.Fatalf("leaguectl: advance-day: %v", err)
		}
		fmt.Printf("advanced to %s: %d events run, %d failed, phase changed=%v\n",
			result.Date.Format("2006-01-02"), result.EventsRun, len(result.EventsFailed), result.PhaseChanged)

	case "advance-week":
		ctrl, err := season.NewDefaultController(ctx, s, appLogger, nil, dynastyID, defaultCapLimit)
		if err != nil {
			log.Fatalf("leaguectl: %v", err)
		}
		result, err := ctrl.AdvanceWeek(ctx)
		if err != nil {
			log.Fatalf("leaguectl: advance-week: %v", err)
		}
		failed := 0
		for _, d := range result.Days {
			failed += len(d.EventsFailed)
		}
		fmt.Printf("advanced %d days, %d events run, %d failed\n", len(result.Days), result.EventsRun, failed)

	case "advance-phase":
		ctrl, err := season.NewDefaultController(ctx, s, appLogger, nil, dynastyID, defaultCapLimit)
		if err != nil {
			log.Fatalf("leaguectl: %v", err)
		}
		summary, err := ctrl.AdvanceToEndOfPhase(ctx, func(d season.DayResult) {
			if verbose {
				fmt.Printf("  %s: %d events\n", d.Date.Format("2006-01-02"), d.EventsRun)
			}
		})
		if err != nil {
			log.Fatalf("leaguectl: advance-phase: %v", err)
		}
		fmt.Printf("phase %s -> %s over %d days\n", summary.FromPhase, summary.ToPhase, len(summary.Days))

	case "advance-season":
		ctrl, err := season.NewDefaultController(ctx, s, appLogger, nil, dynastyID, defaultCapLimit)
		if err != nil {
			log.Fatalf("leaguectl: %v", err)
		}
		summary, err := ctrl.SimulateToEndOfSeason(ctx, func(d season.DayResult) {
			if verbose {
				fmt.Printf("  %s: %d events\n", d.Date.Format("2006-01-02"), d.EventsRun)
			}
		})
		if err != nil {
			log.Fatalf("leaguectl: advance-season: %v", err)
		}
		fmt.Printf("season complete: %d phases\n", len(summary.Phases))

	default:
		log.Fatalf("leaguectl: unknown command %q", command)
	}
}

func runInit(ctx context.Context, s *store.SQLite, dynastyID string, seasonYear int, startDate string) error {
	start := time.Now().UTC()
	if startDate != "" {
		parsed, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return fmt.Errorf("parse -start: %w", err)
		}
		start = parsed
	}

	_, err := s.DB().ExecContext(ctx,
		`INSERT INTO dynasties (dynasty_id, season, phase, current_date, current_week)
		 VALUES ($1,$2,$3,$4,0)
		 ON CONFLICT (dynasty_id) DO NOTHING`,
		dynastyID, seasonYear, models.PhaseOffseason, start,
	)
	return err
}

func runSeedSchedule(ctx context.Context, s *store.SQLite, dynastyID string, seasonYear int, teamsFlag string) error {
	teamIDs, err := parseTeamIDs(teamsFlag)
	if err != nil {
		return err
	}
	matchups, err := schedule.RoundRobin(teamIDs)
	if err != nil {
		return err
	}

	es := eventstore.New(s)
	seeder := schedule.NewSeeder(es)
	return s.WithDynastyTx(ctx, dynastyID, func(tx *sql.Tx) error {
		return seeder.Seed(ctx, tx, dynastyID, seasonYear, matchups)
	})
}

func parseTeamIDs(teamsFlag string) ([]int, error) {
	if teamsFlag == "" {
		return nil, engineerr.New(engineerr.KindInvalidTx, "-teams is required for seed-schedule")
	}
	parts := strings.Split(teamsFlag, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse -teams: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
