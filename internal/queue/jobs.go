package queue

import (
	"context"
	"encoding/json"

	"rollbook/internal/model"
)

const (
	TypeRosterUploaded  = "roster.uploaded"
	TypeAttendanceSaved = "attendance.saved"
)

// RosterUploaded asks the worker to archive and remove a transient upload.
type RosterUploaded struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// AttendanceSaved asks the worker to refresh the cached daily summary.
type AttendanceSaved struct {
	UserID model.ID `json:"userId"`
	Date   string   `json:"date"`
}

// PublishJSON encodes payload as the message body.
func PublishJSON(ctx context.Context, q Queue, typ string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.Publish(ctx, Message{Type: typ, Body: body})
}
