package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateScheduleRequest struct {
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	DayOfWeek   *int      `json:"day_of_week" validate:"required,gte=0,lte=6"` // 0 = Sunday
	StartTime   string    `json:"start_time" validate:"required,clock_time"`   // Format: HH:MM
	EndTime     string    `json:"end_time" validate:"required,clock_time"`     // Format: HH:MM
	SlotMinutes int       `json:"slot_minutes" validate:"required,min=5,max=240"`
	MaxCapacity int       `json:"max_capacity" validate:"required,min=1,max=100"`
}

// Response DTOs

type ScheduleResponse struct {
	ID          int       `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	DayOfWeek   int       `json:"day_of_week"`
	DayName     string    `json:"day_name"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	SlotMinutes int       `json:"slot_minutes"`
	MaxCapacity int       `json:"max_capacity"`
	SlotCount   int       `json:"slot_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Total     int                `json:"total"`
}
