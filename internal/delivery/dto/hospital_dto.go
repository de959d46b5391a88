package dto

import (
	"github.com/google/uuid"
)

type HospitalResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Timezone string    `json:"timezone"`
	IsActive *bool     `json:"is_active"`
}
