package dto

import (
	"time"

	"github.com/noah-isme/timetable-sync/internal/models"
)

// RoomStatusQuery selects the instant for a status lookup. Empty At means now.
type RoomStatusQuery struct {
	At string `form:"at" validate:"omitempty"`
}

// RoomStatusResponse is the status of one room at an instant.
type RoomStatusResponse struct {
	RoomID string            `json:"roomId"`
	At     time.Time         `json:"at"`
	Status models.RoomStatus `json:"status"`
}

// RoomSearchQuery filters rooms by name fragment.
type RoomSearchQuery struct {
	Name  string `form:"name" validate:"required,min=1,max=64"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// RoomLessonsQuery selects the calendar date of a room's lessons.
type RoomLessonsQuery struct {
	Date string `form:"date" validate:"required,datetime=2006-01-02"`
}

// OccupancySummaryQuery is the HTTP form of models.OccupancyQuery.
type OccupancySummaryQuery struct {
	CampusID  string   `form:"campusId" validate:"omitempty,uuid"`
	RoomIDs   []string `form:"roomId" validate:"omitempty,dive,uuid"`
	RoomNames []string `form:"room" validate:"omitempty,dive,min=1,max=64"`
	At        string   `form:"at"`
}

// WorkloadReportQuery chooses the report format.
type WorkloadReportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// UpdateMaxWeekRequest changes the calendar length.
type UpdateMaxWeekRequest struct {
	MaxWeek int `json:"maxWeek" validate:"required,min=1,max=53"`
}
