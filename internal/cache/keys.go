package cache

import (
	"strings"

	"rollbook/internal/model"
)

func ProfileKey(userID model.ID) string {
	return "profile:v1:" + userID.String()
}

func SummaryKey(userID model.ID, date string) string {
	return "attendance:summary:v1:" + userID.String() + ":" + strings.TrimSpace(date)
}
