// Package store owns the durable Activity entity and the bulk-commit
// boundary the import pipeline feeds into. It talks PostgreSQL through pgx.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Activity is the durable unit of schedulable work. Only rows the user
// explicitly commits from a reviewed import become activities.
type Activity struct {
	ID          uuid.UUID `json:"id"`
	ProjectCode string    `json:"project_code"`
	AreaName    string    `json:"area_name"`
	SystemName  string    `json:"system_name"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	BOQQty      float64   `json:"boq_qty"`
	Weight      float64   `json:"weight"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FailedInsert describes one row the commit transaction refused.
type FailedInsert struct {
	Row          int    `json:"row"`
	ActivityCode string `json:"activity_code"`
	Reason       string `json:"reason"`
}

// CommitResult is the per-file outcome of a bulk commit.
type CommitResult struct {
	CommitID  string         `json:"commitId"`
	Requested int            `json:"requested"`
	Inserted  int            `json:"inserted"`
	Skipped   int            `json:"skipped"`
	Failed    []FailedInsert `json:"failed,omitempty"`
}
