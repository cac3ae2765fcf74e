package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxProjectNameLen is counted in runes.
const MaxProjectNameLen = 200

// Project groups documents, chunks and test plans. Retrieval never crosses projects.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewProject(id, name string, createdAt time.Time) *Project {
	return &Project{ID: id, Name: name, CreatedAt: createdAt}
}

// ValidateProject checks a project before it is stored.
func ValidateProject(p *Project) error {
	switch {
	case p == nil:
		return errors.New("project cannot be nil")
	case p.ID == "":
		return errors.New("project ID is required")
	case strings.TrimSpace(p.Name) == "":
		return errors.New("project Name is required")
	case utf8.RuneCountInString(p.Name) > MaxProjectNameLen:
		return fmt.Errorf("project Name must be at most %d characters", MaxProjectNameLen)
	case strings.IndexFunc(p.Name, unicode.IsControl) >= 0:
		return errors.New("project Name must not contain control characters")
	}
	return nil
}
