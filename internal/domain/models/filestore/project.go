package filestore

import (
	"time"
)

// ImportStatus tracks an in-flight source-control import or export.
// Empty means no import/export has been requested.
type ImportStatus string

const (
	ImportStatusPending ImportStatus = "pending"
	ImportStatusDone    ImportStatus = "done"
	ImportStatusFailed  ImportStatus = "failed"
)

type Project struct {
	ID           string        `json:"id" db:"id"`
	OwnerID      string        `json:"owner_id" db:"owner_id"`
	Name         string        `json:"name" db:"name"`
	ImportStatus *ImportStatus `json:"import_status,omitempty" db:"import_status"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}
