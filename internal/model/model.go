package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a store-assigned integer key. It decodes from either a JSON number or a
// quoted string since browsers tend to keep ids in localStorage as strings.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", string(b))
	}
	*id = ID(n)
	return nil
}

// ParseID parses a path parameter into an ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return ID(n), nil
}

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Profile holds the institutional fields a user may edit after registration.
type Profile struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	School  string `json:"school"`
	Class   string `json:"class"`
	Section string `json:"section"`
	College string `json:"college"`
	Year    string `json:"year"`
	Branch  string `json:"branch"`
	Role    string `json:"role"`
}

// User is a registered teacher or institution account.
type User struct {
	ID              ID     `json:"id"`
	Email           string `json:"email"`
	PasswordHash    string `json:"-"` // never serialized
	InstitutionType string `json:"institutionType"`
	Profile
}

// Student is one roster entry owned by a user.
type Student struct {
	ID         ID     `json:"id"`
	UserID     ID     `json:"userId"`
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
}

// AttendanceRecord is a single status mark for a student on a date.
type AttendanceRecord struct {
	ID        ID     `json:"id"`
	StudentID ID     `json:"studentId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

// AttendanceEntry is an attendance row joined with its student.
type AttendanceEntry struct {
	AttendanceRecord
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
}
