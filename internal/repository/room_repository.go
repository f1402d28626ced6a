package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-sync/internal/models"
)

// RoomRepository reads rooms for occupancy queries.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByID fetches a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, name, campus_id FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// Search returns rooms whose name contains the fragment, case-insensitively.
func (r *RoomRepository) Search(ctx context.Context, fragment string, limit int) ([]models.Room, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, name, campus_id FROM rooms WHERE LOWER(name) LIKE $1 ESCAPE '\' ORDER BY name ASC LIMIT $2`
	rooms := make([]models.Room, 0)
	if err := r.db.SelectContext(ctx, &rooms, query, containsPattern(fragment), limit); err != nil {
		return nil, fmt.Errorf("search rooms: %w", err)
	}
	return rooms, nil
}

// List returns rooms matching every non-empty selector of the query.
func (r *RoomRepository) List(ctx context.Context, q models.OccupancyQuery) ([]models.Room, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q.CampusID != "" {
		args = append(args, q.CampusID)
		conds = append(conds, fmt.Sprintf("campus_id = $%d", len(args)))
	}
	if len(q.RoomIDs) > 0 {
		args = append(args, pq.Array(q.RoomIDs))
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(q.RoomNames) > 0 {
		patterns := make([]string, len(q.RoomNames))
		for i, name := range q.RoomNames {
			patterns[i] = containsPattern(name)
		}
		args = append(args, pq.Array(patterns))
		conds = append(conds, fmt.Sprintf("LOWER(name) LIKE ANY($%d)", len(args)))
	}

	query := `SELECT id, name, campus_id FROM rooms`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC"

	rooms := make([]models.Room, 0)
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func containsPattern(fragment string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(strings.TrimSpace(fragment)))
	return "%" + escaped + "%"
}
