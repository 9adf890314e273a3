package hostel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"hostelhub/internal/identity"
)

// Repository persists rooms and occupancy in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const roomColumns = `id, room_number, floor, capacity, room_type, facilities, is_available, remarks, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*Room, error) {
	var room Room
	var facilities []byte
	err := row.Scan(&room.ID, &room.RoomNumber, &room.Floor, &room.Capacity, &room.Type,
		&facilities, &room.IsAvailable, &room.Remarks, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(facilities, &room.Facilities); err != nil {
		room.Facilities = nil
	}
	return &room, nil
}

// CreateRoom inserts a new room.
func (r *Repository) CreateRoom(ctx context.Context, room Room) (Room, error) {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Facilities == nil {
		room.Facilities = []string{}
	}
	facilities, _ := json.Marshal(room.Facilities)
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO rooms (id, room_number, floor, capacity, room_type, facilities, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING is_available, created_at, updated_at
	`, room.ID, room.RoomNumber, room.Floor, room.Capacity, room.Type, facilities, room.Remarks)
	if err := row.Scan(&room.IsAvailable, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return Room{}, err
	}
	room.Occupants = []Occupant{}
	return room, nil
}

// GetRoom returns a room with its occupants, nil when absent.
func (r *Repository) GetRoom(ctx context.Context, id string) (*Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil || room == nil {
		return room, err
	}
	if err := r.loadOccupants(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (r *Repository) loadOccupants(ctx context.Context, room *Room) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.student_code, u.email, u.department
		FROM room_occupants ro JOIN users u ON u.id = ro.user_id
		WHERE ro.room_id = $1
		ORDER BY ro.assigned_at
	`, room.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	room.Occupants = []Occupant{}
	for rows.Next() {
		var o Occupant
		if err := rows.Scan(&o.UserID, &o.Name, &o.StudentCode, &o.Email, &o.Department); err != nil {
			return err
		}
		room.Occupants = append(room.Occupants, o)
	}
	return rows.Err()
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	Floor        *int
	Type         string
	Availability string // "available" | "occupied" | ""
}

// ListRooms returns rooms with occupants matching the filter.
func (r *Repository) ListRooms(ctx context.Context, f RoomFilter) ([]Room, error) {
	clauses := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Floor != nil {
		clauses = append(clauses, "floor = "+arg(*f.Floor))
	}
	if f.Type != "" {
		clauses = append(clauses, "room_type = "+arg(f.Type))
	}
	switch f.Availability {
	case "available":
		clauses = append(clauses, "is_available")
	case "occupied":
		clauses = append(clauses, "NOT is_available")
	}

	query := `SELECT ` + roomColumns + ` FROM rooms`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY floor, room_number"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range rooms {
		if err := r.loadOccupants(ctx, &rooms[i]); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// UpdateParams carries the admin-editable room fields.
type UpdateParams struct {
	Floor      *int
	Capacity   *int
	Type       *string
	Facilities []string
	Remarks    *string
}

// UpdateRoom applies the allow-listed fields and returns the updated room.
func (r *Repository) UpdateRoom(ctx context.Context, id string, p UpdateParams) (*Room, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Floor != nil {
		set("floor", *p.Floor)
	}
	if p.Capacity != nil {
		set("capacity", *p.Capacity)
	}
	if p.Type != nil {
		set("room_type", *p.Type)
	}
	if p.Facilities != nil {
		facilities, _ := json.Marshal(p.Facilities)
		set("facilities", facilities)
	}
	if p.Remarks != nil {
		set("remarks", *p.Remarks)
	}

	query := `UPDATE rooms SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + roomColumns
	room, err := scanRoom(r.db.QueryRowContext(ctx, query, args...))
	if err != nil || room == nil {
		return room, err
	}
	if err := r.loadOccupants(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// RoomOfUser returns the room the user currently occupies, nil when none.
func (r *Repository) RoomOfUser(ctx context.Context, userID string) (*Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE id = (SELECT room_id FROM room_occupants WHERE user_id = $1)
	`, userID))
	if err != nil || room == nil {
		return room, err
	}
	if err := r.loadOccupants(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// AddOccupant assigns a user to a room. The room row is locked, the count
// re-checked against capacity, and the occupant insert plus the user's
// room-number cache land in one transaction.
func (r *Repository) AddOccupant(ctx context.Context, roomID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var capacity, occupied int
	if err := tx.QueryRowContext(ctx, `
		SELECT capacity, (SELECT COUNT(*) FROM room_occupants WHERE room_id = rooms.id)
		FROM rooms WHERE id = $1 FOR UPDATE
	`, roomID).Scan(&capacity, &occupied); err != nil {
		return err
	}
	if occupied >= capacity {
		return ErrCapacity
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_occupants (room_id, user_id) VALUES ($1, $2)
	`, roomID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE rooms SET is_available = ($2 + 1) < capacity, updated_at = NOW() WHERE id = $1
	`, roomID, occupied); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET room_number = (SELECT room_number FROM rooms WHERE id = $1), updated_at = NOW()
		WHERE id = $2
	`, roomID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveOccupant is the inverse of AddOccupant, same transactional shape.
func (r *Repository) RemoveOccupant(ctx context.Context, roomID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT 1 FROM rooms WHERE id = $1 FOR UPDATE`, roomID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM room_occupants WHERE room_id = $1 AND user_id = $2
	`, roomID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE rooms SET is_available = (SELECT COUNT(*) FROM room_occupants WHERE room_id = $1) < capacity,
			updated_at = NOW()
		WHERE id = $1
	`, roomID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET room_number = NULL, updated_at = NOW() WHERE id = $1
	`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// Overview holds hostel-wide occupancy statistics.
type Overview struct {
	TotalRooms     int     `json:"totalRooms"`
	AvailableRooms int     `json:"availableRooms"`
	FullRooms      int     `json:"fullyOccupiedRooms"`
	TotalCapacity  int     `json:"totalCapacity"`
	OccupiedBeds   int     `json:"occupiedBeds"`
	AvailableBeds  int     `json:"availableBeds"`
	OccupancyRate  float64 `json:"occupancyRate"`
}

// FloorStat aggregates one floor.
type FloorStat struct {
	Floor          int `json:"floor"`
	TotalRooms     int `json:"totalRooms"`
	TotalCapacity  int `json:"totalCapacity"`
	OccupiedBeds   int `json:"occupiedBeds"`
	AvailableRooms int `json:"availableRooms"`
}

// GetOverview computes hostel-wide and per-floor statistics.
func (r *Repository) GetOverview(ctx context.Context) (Overview, []FloorStat, error) {
	var o Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_available),
		       COUNT(*) FILTER (WHERE NOT is_available),
		       COALESCE(SUM(capacity), 0),
		       COALESCE(SUM((SELECT COUNT(*) FROM room_occupants WHERE room_id = rooms.id)), 0)
		FROM rooms
	`).Scan(&o.TotalRooms, &o.AvailableRooms, &o.FullRooms, &o.TotalCapacity, &o.OccupiedBeds)
	if err != nil {
		return Overview{}, nil, err
	}
	o.AvailableBeds = o.TotalCapacity - o.OccupiedBeds
	if o.TotalCapacity > 0 {
		o.OccupancyRate = float64(o.OccupiedBeds) / float64(o.TotalCapacity) * 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT floor, COUNT(*), COALESCE(SUM(capacity), 0),
		       COALESCE(SUM((SELECT COUNT(*) FROM room_occupants WHERE room_id = rooms.id)), 0),
		       COUNT(*) FILTER (WHERE is_available)
		FROM rooms GROUP BY floor ORDER BY floor
	`)
	if err != nil {
		return Overview{}, nil, err
	}
	defer rows.Close()

	var floors []FloorStat
	for rows.Next() {
		var fs FloorStat
		if err := rows.Scan(&fs.Floor, &fs.TotalRooms, &fs.TotalCapacity, &fs.OccupiedBeds, &fs.AvailableRooms); err != nil {
			return Overview{}, nil, err
		}
		floors = append(floors, fs)
	}
	return o, floors, rows.Err()
}

// UnassignedStudents lists active students occupying no room.
func (r *Repository) UnassignedStudents(ctx context.Context) ([]identity.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, student_code, department, semester, phone_number
		FROM users
		WHERE role = 'student' AND is_active
		AND id NOT IN (SELECT user_id FROM room_occupants)
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []identity.User
	for rows.Next() {
		var u identity.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.StudentCode, &u.Department, &u.Semester, &u.PhoneNumber); err != nil {
			return nil, err
		}
		students = append(students, u)
	}
	return students, rows.Err()
}
