package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollbook/internal/attendance"
	"rollbook/internal/model"
)

type saveAttendanceRequest struct {
	UserID     model.ID          `json:"userId"`
	Date       string            `json:"date"`
	Attendance []attendance.Mark `json:"attendance"`
}

func (h *handler) saveAttendance(c *gin.Context) {
	var req saveAttendanceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if !h.bodyUser(c, req.UserID) {
		return
	}
	if err := h.attendance.Record(c.Request.Context(), req.UserID, req.Date, req.Attendance); err != nil {
		h.fail(c, err, "Failed to save attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance saved"})
}

func (h *handler) listAttendance(c *gin.Context) {
	id, ok := h.pathUser(c)
	if !ok {
		return
	}
	entries, err := h.attendance.List(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		h.fail(c, err, "Failed to load attendance")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) attendanceSummary(c *gin.Context) {
	id, ok := h.pathUser(c)
	if !ok {
		return
	}
	sum, err := h.attendance.Summary(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		h.fail(c, err, "Failed to load summary")
		return
	}
	c.JSON(http.StatusOK, sum)
}
