package models

import (
	"errors"
	"time"
)

type QueueSetting struct {
	DepartmentID   string    `json:"department_id"`
	DepartmentName string    `json:"department_name,omitempty"`
	Prefix         string    `json:"prefix"`
	DailyQuota     int       `json:"daily_quota"`
	StartNumber    int       `json:"start_number"`
	IsActive       bool      `json:"is_active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s QueueSetting) Validate() error {
	if s.DepartmentID == "" {
		return errors.New("department_id is required")
	}
	if len(s.Prefix) < 1 || len(s.Prefix) > 3 {
		return errors.New("prefix must be 1-3 characters")
	}
	for _, r := range s.Prefix {
		if r < 'A' || r > 'Z' {
			return errors.New("prefix must be uppercase letters")
		}
	}
	if s.StartNumber < 1 {
		return errors.New("start_number must be positive")
	}
	if s.DailyQuota < s.StartNumber {
		return errors.New("daily_quota must be greater than or equal to start_number")
	}
	return nil
}
