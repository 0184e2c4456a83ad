package models

import (
	"strings"
	"time"
)

type Branch struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

type Employee struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	BranchID     *int64 `json:"branch_id,omitempty"`
	PasswordHash string `json:"-"`
}

// FullName joins first and last name, dropping whichever is empty.
func (e Employee) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName))
}

type Shift struct {
	ID         int64     `json:"id"`
	EmployeeID string    `json:"user_id"`
	BranchID   int64     `json:"branch_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Position   string    `json:"position"`
	Notes      string    `json:"notes,omitempty"`
}

// Hours is the shift length in fractional hours.
func (s Shift) Hours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

type Session struct {
	ID         string    `json:"session_id"`
	EmployeeID string    `json:"user_id"`
	Role       string    `json:"role"`
	BranchID   *int64    `json:"branch_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type Bucket string

const (
	BucketMorning   Bucket = "morning"
	BucketAfternoon Bucket = "afternoon"
	BucketEvening   Bucket = "evening"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketMorning, BucketAfternoon, BucketEvening}

const UnknownPosition = "Unknown"

// NormalizePosition trims the label and substitutes UnknownPosition for blanks.
func NormalizePosition(position string) string {
	position = strings.TrimSpace(position)
	if position == "" {
		return UnknownPosition
	}
	return position
}
