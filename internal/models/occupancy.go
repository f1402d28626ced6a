package models

import "time"

// RoomStatus is the occupancy state of a room at an instant.
type RoomStatus string

const (
	RoomStatusFree RoomStatus = "free"
	RoomStatusBusy RoomStatus = "busy"
)

// RoomOccupancy is one entry of a batched occupancy summary.
type RoomOccupancy struct {
	RoomID   string     `json:"room_id"`
	RoomName string     `json:"name"`
	Status   RoomStatus `json:"status"`
}

// OccupancyQuery selects rooms for a batched summary. Empty fields are ignored;
// room names match case-insensitively by substring.
type OccupancyQuery struct {
	CampusID  string   `json:"campus_id"`
	RoomIDs   []string `json:"room_ids"`
	RoomNames []string `json:"room_names"`
}

// Empty reports whether no selector is set.
func (q OccupancyQuery) Empty() bool {
	return q.CampusID == "" && len(q.RoomIDs) == 0 && len(q.RoomNames) == 0
}

// RoomWorkload is the utilization of a room over the whole recurring calendar.
type RoomWorkload struct {
	RoomID   string  `json:"room_id"`
	RoomName string  `json:"name"`
	Workload float64 `json:"workload"`
}

// Room purposes derived from the dominant lesson type.
const (
	RoomPurposeLecture    = "Lecture"
	RoomPurposePractice   = "Practice"
	RoomPurposeLaboratory = "Laboratory"
	RoomPurposeUnknown    = "Unknown"
)

// RoomInfo aggregates a room with its lessons and derived figures.
type RoomInfo struct {
	Room     Room           `json:"room"`
	Lessons  []StoredLesson `json:"lessons"`
	Workload float64        `json:"workload"`
	Purpose  string         `json:"purpose"`
}

// ScheduleSettings holds tenant-wide calendar settings.
type ScheduleSettings struct {
	MaxWeek   int       `db:"max_week" json:"max_week"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
