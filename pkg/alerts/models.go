package alerts

import (
	"time"

	"gorm.io/datatypes"
)

// FlagRecord is one persisted advisory flag event.
type FlagRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	ThreadID  string    `json:"thread_id" gorm:"column:thread_id;index"`
	PatientID string    `json:"patient_id" gorm:"column:patient_id;index"`
	Code      string    `json:"code" gorm:"column:code"`
	Severity  string    `json:"severity" gorm:"column:severity;index"`
	Rule      string    `json:"rule" gorm:"column:rule"`
	Evidence  string    `json:"evidence" gorm:"column:evidence"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (FlagRecord) TableName() string {
	return "flag_events"
}

// RunRecord is the audit trail of one pipeline invocation.
type RunRecord struct {
	ID           string            `json:"id" gorm:"primaryKey;column:id"`
	ThreadID     string            `json:"thread_id" gorm:"column:thread_id;index"`
	Query        string            `json:"query" gorm:"column:query"`
	Route        string            `json:"route" gorm:"column:route"`
	Params       datatypes.JSONMap `json:"params" gorm:"column:params"`
	FetchedCount int               `json:"fetched_count" gorm:"column:fetched_count"`
	FlagCount    int               `json:"flag_count" gorm:"column:flag_count"`
	CreatedAt    time.Time         `json:"created_at" gorm:"column:created_at"`
}

func (RunRecord) TableName() string {
	return "query_runs"
}
