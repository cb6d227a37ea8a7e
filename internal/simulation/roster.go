package simulation

import (
	"context"
	"database/sql"

	"github.com/nfl-analytics/backend/internal/models"
)

// SQLRosterReader implements RosterReader directly against the players
// table: every active, non-retired player on a team, for either backend.
type SQLRosterReader struct{}

// NewSQLRosterReader builds the default database-backed RosterReader.
func NewSQLRosterReader() *SQLRosterReader {
	return &SQLRosterReader{}
}

func (r *SQLRosterReader) Roster(ctx context.Context, tx *sql.Tx, dynasty string, teamID int) ([]models.Player, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT dynasty_id, player_id, name, position, overall, age, years_pro, team_id, retired
		FROM players
		WHERE dynasty_id = $1 AND team_id = $2 AND retired = false`,
		dynasty, teamID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.Dynasty, &p.ID, &p.Name, &p.Position, &p.Overall, &p.Age, &p.YearsPro, &p.TeamID, &p.Retired); err != nil {
			return nil, err
		}
		roster = append(roster, p)
	}
	return roster, rows.Err()
}
