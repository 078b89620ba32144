// package job_api provides ingestion job API handlers.
package job_api

import (
	"encoding/json"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"mindreel.dev/mindreel/cmd/web/handlers/common"
	"mindreel.dev/mindreel/internal/db"
)

// jobView is the JSON shape for one job. Age and ran-for durations are
// humanized for the operator reading the list.
type jobView struct {
	ID          int64           `json:"id"`
	Type        db.JobType      `json:"type"`
	Status      db.JobStatus    `json:"status"`
	Attempts    int32           `json:"attempts"`
	MaxAttempts int32           `json:"maxAttempts"`
	Payload     json.RawMessage `json:"payload"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	Age         string          `json:"age"`
	StartedAt   string          `json:"startedAt,omitempty"`
	CompletedAt string          `json:"completedAt,omitempty"`
}

func toJobView(job *db.Job) jobView {
	v := jobView{
		ID:          job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		Payload:     job.Payload,
		Error:       job.Error,
	}
	if job.CreatedAt.Valid {
		v.CreatedAt = job.CreatedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
		v.Age = humanize.Time(job.CreatedAt.Time)
	}
	if job.StartedAt.Valid {
		v.StartedAt = job.StartedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if job.CompletedAt.Valid {
		v.CompletedAt = job.CompletedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

// HandleIndex lists jobs in one status, default pending.
func HandleIndex(dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := db.JobStatus(c.QueryParam("status"))
		if status == "" {
			status = db.JobStatusPending
		}
		switch status {
		case db.JobStatusPending, db.JobStatusProcessing, db.JobStatusCompleted, db.JobStatusFailed:
		default:
			return common.ErrBadRequest("unknown status")
		}

		ctx := c.Request().Context()
		jobs, err := dbc.Queries(ctx).GetJobsByStatus(ctx, status)
		if err != nil {
			slog.Error("failed to list jobs", "status", status, "error", err)
			return common.ErrInternal("failed to list jobs")
		}

		views := make([]jobView, 0, len(jobs))
		for _, job := range jobs {
			views = append(views, toJobView(job))
		}
		return c.JSON(200, map[string]any{"status": status, "jobs": views})
	}
}
