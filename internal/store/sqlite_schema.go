package store

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteSchema mirrors migrations/000001_init_schema.up.sql,
// 000002_rookie_draft.up.sql, and 000003_playoff_seeds.up.sql, translated
// to SQLite's dialect: SERIAL
// becomes INTEGER PRIMARY KEY AUTOINCREMENT, JSONB/BYTEA become TEXT/BLOB,
// TIMESTAMPTZ becomes DATETIME, and UUID primary keys become TEXT. The
// Postgres migrations remain authoritative for the Postgres driver; this
// is `leaguectl`'s self-contained bootstrap for a fresh SQLite file, since
// golang-migrate's migration set targets Postgres only.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dynasties (
    dynasty_id    TEXT PRIMARY KEY,
    season        INTEGER NOT NULL,
    phase         TEXT NOT NULL,
    current_date  DATETIME NOT NULL,
    current_week  INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS teams (
    dynasty_id  TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    id          INTEGER NOT NULL,
    name        TEXT NOT NULL,
    abbr        TEXT NOT NULL,
    conference  TEXT NOT NULL,
    division    TEXT NOT NULL,
    PRIMARY KEY (dynasty_id, id)
);

CREATE TABLE IF NOT EXISTS players (
    dynasty_id  TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    player_id   INTEGER NOT NULL,
    name        TEXT NOT NULL,
    position    TEXT NOT NULL,
    overall     INTEGER NOT NULL,
    age         INTEGER NOT NULL,
    years_pro   INTEGER NOT NULL DEFAULT 0,
    team_id     INTEGER,
    retired     BOOLEAN NOT NULL DEFAULT 0,
    PRIMARY KEY (dynasty_id, player_id)
);
CREATE INDEX IF NOT EXISTS idx_players_team ON players(dynasty_id, team_id);

CREATE TABLE IF NOT EXISTS contracts (
    dynasty_id    TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    contract_id   INTEGER NOT NULL,
    player_id     INTEGER NOT NULL,
    team_id       INTEGER NOT NULL,
    years         INTEGER NOT NULL,
    signing_bonus INTEGER NOT NULL,
    base_salary   TEXT NOT NULL,
    proration     TEXT NOT NULL,
    guarantees    TEXT NOT NULL,
    roster_bonus  TEXT NOT NULL,
    void_years    INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT 'active',
    signed_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (dynasty_id, contract_id)
);
CREATE INDEX IF NOT EXISTS idx_contracts_player ON contracts(dynasty_id, player_id);

CREATE TABLE IF NOT EXISTS salary_cap_records (
    dynasty_id   TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    team_id      INTEGER NOT NULL,
    season       INTEGER NOT NULL,
    cap_limit    INTEGER NOT NULL,
    active_hits  INTEGER NOT NULL DEFAULT 0,
    dead_money   INTEGER NOT NULL DEFAULT 0,
    carryover    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (dynasty_id, team_id, season)
);

CREATE TABLE IF NOT EXISTS cap_transactions (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    dynasty_id          TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    team_id             INTEGER NOT NULL,
    date                DATETIME NOT NULL,
    transaction_type    TEXT NOT NULL,
    cap_impact_current  INTEGER NOT NULL,
    cap_impact_future   INTEGER NOT NULL DEFAULT 0,
    description         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cap_tx_dynasty_team ON cap_transactions(dynasty_id, team_id, date);

CREATE TABLE IF NOT EXISTS standings (
    dynasty_id      TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    team_id         INTEGER NOT NULL,
    season          INTEGER NOT NULL,
    wins            INTEGER NOT NULL DEFAULT 0,
    losses          INTEGER NOT NULL DEFAULT 0,
    ties            INTEGER NOT NULL DEFAULT 0,
    division_wins   INTEGER NOT NULL DEFAULT 0,
    conference_wins INTEGER NOT NULL DEFAULT 0,
    points_for      INTEGER NOT NULL DEFAULT 0,
    points_against  INTEGER NOT NULL DEFAULT 0,
    schedule        TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (dynasty_id, team_id, season)
);

CREATE TABLE IF NOT EXISTS events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    dynasty_id      TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    structured_id   TEXT NOT NULL,
    date            DATETIME NOT NULL,
    kind            TEXT NOT NULL,
    insertion_order INTEGER NOT NULL,
    payload_blob    BLOB NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'scheduled',
    result_blob     BLOB,
    UNIQUE (dynasty_id, structured_id)
);
CREATE INDEX IF NOT EXISTS idx_events_dynasty_date ON events(dynasty_id, date);
CREATE INDEX IF NOT EXISTS idx_events_dynasty_status ON events(dynasty_id, status);
CREATE INDEX IF NOT EXISTS idx_events_structured_prefix ON events(dynasty_id, structured_id);

CREATE TABLE IF NOT EXISTS box_scores (
    game_id           TEXT PRIMARY KEY,
    dynasty_id        TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    season            INTEGER NOT NULL,
    season_type       TEXT NOT NULL,
    week              INTEGER NOT NULL,
    game_type         TEXT NOT NULL,
    home_team_id      INTEGER NOT NULL,
    away_team_id      INTEGER NOT NULL,
    home_score        INTEGER NOT NULL,
    away_score        INTEGER NOT NULL,
    overtime_periods  INTEGER NOT NULL DEFAULT 0,
    played_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_box_scores_dynasty ON box_scores(dynasty_id, season, week);

CREATE TABLE IF NOT EXISTS player_game_stats (
    dynasty_id    TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    game_id       TEXT NOT NULL REFERENCES box_scores(game_id),
    season_type   TEXT NOT NULL,
    player_id     INTEGER NOT NULL,
    team_id       INTEGER NOT NULL,
    pass_yards    INTEGER NOT NULL DEFAULT 0,
    pass_tds      INTEGER NOT NULL DEFAULT 0,
    rush_yards    INTEGER NOT NULL DEFAULT 0,
    rush_tds      INTEGER NOT NULL DEFAULT 0,
    rec_yards     INTEGER NOT NULL DEFAULT 0,
    rec_tds       INTEGER NOT NULL DEFAULT 0,
    tackles       INTEGER NOT NULL DEFAULT 0,
    sacks         REAL NOT NULL DEFAULT 0,
    interceptions INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (dynasty_id, game_id, player_id)
);

CREATE TABLE IF NOT EXISTS trade_proposals (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    dynasty_id     TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    season         INTEGER NOT NULL,
    team_a         INTEGER NOT NULL,
    team_b         INTEGER NOT NULL,
    players_a      TEXT NOT NULL DEFAULT '[]',
    players_b      TEXT NOT NULL DEFAULT '[]',
    picks_a        TEXT NOT NULL DEFAULT '[]',
    picks_b        TEXT NOT NULL DEFAULT '[]',
    value_a        REAL NOT NULL DEFAULT 0,
    value_b        REAL NOT NULL DEFAULT 0,
    fairness       REAL NOT NULL DEFAULT 0,
    status         TEXT NOT NULL DEFAULT 'proposed',
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    resolved_at    DATETIME
);
CREATE INDEX IF NOT EXISTS idx_trades_dynasty ON trade_proposals(dynasty_id, season);

CREATE TABLE IF NOT EXISTS draft_pick_assets (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    dynasty_id      TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    season          INTEGER NOT NULL,
    round           INTEGER NOT NULL,
    pick_in_round   INTEGER,
    owning_team_id  INTEGER NOT NULL,
    origin_team_id  INTEGER NOT NULL,
    used            BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_draft_pick_assets_dynasty ON draft_pick_assets(dynasty_id, season);

CREATE TABLE IF NOT EXISTS retired_players (
    dynasty_id     TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    player_id      INTEGER NOT NULL,
    season         INTEGER NOT NULL,
    reason         TEXT NOT NULL,
    final_team_id  INTEGER,
    PRIMARY KEY (dynasty_id, player_id)
);

CREATE TABLE IF NOT EXISTS career_summaries (
    dynasty_id      TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    player_id       INTEGER NOT NULL,
    seasons_played  INTEGER NOT NULL DEFAULT 0,
    games_played    INTEGER NOT NULL DEFAULT 0,
    pro_bowls       INTEGER NOT NULL DEFAULT 0,
    all_pros        INTEGER NOT NULL DEFAULT 0,
    championships   INTEGER NOT NULL DEFAULT 0,
    hof_score       REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (dynasty_id, player_id)
);

CREATE TABLE IF NOT EXISTS rookie_prospects (
    dynasty_id     TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    season         INTEGER NOT NULL,
    prospect_id    INTEGER NOT NULL,
    name           TEXT NOT NULL,
    position       TEXT NOT NULL,
    overall        INTEGER NOT NULL,
    age            INTEGER NOT NULL DEFAULT 21,
    drafted        BOOLEAN NOT NULL DEFAULT 0,
    PRIMARY KEY (dynasty_id, season, prospect_id)
);
CREATE INDEX IF NOT EXISTS idx_rookie_prospects_pool ON rookie_prospects(dynasty_id, season, drafted);

CREATE TABLE IF NOT EXISTS playoff_seeds (
    dynasty_id  TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    season      INTEGER NOT NULL,
    conference  TEXT NOT NULL,
    seed        INTEGER NOT NULL,
    team_id     INTEGER NOT NULL,
    PRIMARY KEY (dynasty_id, season, conference, seed)
);
CREATE INDEX IF NOT EXISTS idx_playoff_seeds_lookup ON playoff_seeds(dynasty_id, season, team_id);

CREATE TABLE IF NOT EXISTS draft_selections (
    dynasty_id     TEXT NOT NULL REFERENCES dynasties(dynasty_id),
    season         INTEGER NOT NULL,
    overall_pick   INTEGER NOT NULL,
    round          INTEGER NOT NULL,
    pick_in_round  INTEGER NOT NULL,
    team_id        INTEGER NOT NULL,
    prospect_id    INTEGER,
    player_id      INTEGER,
    selected_at    DATETIME,
    PRIMARY KEY (dynasty_id, season, overall_pick)
);
CREATE INDEX IF NOT EXISTS idx_draft_selections_pending ON draft_selections(dynasty_id, season, selected_at);
`

// EnsureSchema creates every table `leaguectl` needs on a fresh SQLite
// file, idempotently (CREATE TABLE IF NOT EXISTS throughout) so running
// it against an already-initialized database is a no-op.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("store: ensure sqlite schema: %w", err)
	}
	return nil
}
