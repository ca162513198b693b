package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollbook/internal/model"
)

type saveStudentsRequest struct {
	UserID    model.ID `json:"userId"`
	StartRoll string   `json:"startRoll"`
	Students  []struct {
		Name string `json:"name"`
	} `json:"students"`
}

func (h *handler) uploadStudents(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.badRequest(c, "File is too large", nil)
			return
		}
		h.badRequest(c, "file field required", nil)
		return
	}
	defer file.Close()

	stored, err := h.uploads.Save(file, header.Filename)
	if err != nil {
		h.fail(c, err, "Failed to store upload")
		return
	}

	students, err := h.rosters.Import(c.Request.Context(), stored.Path, stored.Filename)
	if err != nil {
		h.fail(c, err, "Failed to read spreadsheet")
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *handler) saveStudents(c *gin.Context) {
	var req saveStudentsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if !h.bodyUser(c, req.UserID) {
		return
	}

	names := make([]string, len(req.Students))
	for i, s := range req.Students {
		names[i] = s.Name
	}
	saved, err := h.rosters.SaveStudents(c.Request.Context(), req.UserID, names, req.StartRoll)
	if err != nil {
		h.fail(c, err, "Failed to save students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Students saved", "students": saved})
}

func (h *handler) listStudents(c *gin.Context) {
	id, ok := h.pathUser(c)
	if !ok {
		return
	}
	students, err := h.rosters.List(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to load students")
		return
	}
	c.JSON(http.StatusOK, students)
}
