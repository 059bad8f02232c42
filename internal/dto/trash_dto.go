package dto

import "time"

type TrashListQuery struct {
	Kind   string `form:"kind"`
	Search string `form:"search"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

type TrashItemResponse struct {
	Kind       string    `json:"kind"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Identifier string    `json:"identifier"`
	DeletedAt  time.Time `json:"deleted_at"`
	// PurgeAt is when the retention sweep becomes allowed to remove it.
	PurgeAt time.Time `json:"purge_at"`
}

type TrashListResponse struct {
	Data  []TrashItemResponse `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

type TrashStatsResponse struct {
	Counts        map[string]int64 `json:"counts"`
	Total         int64            `json:"total"`
	RetentionDays int              `json:"retention_days"`
}

type SweepResponse struct {
	Cutoff time.Time      `json:"cutoff"`
	Purged map[string]int `json:"purged"`
	Total  int            `json:"total"`
	// Skipped counts records restored between selection and purge.
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
