package models

// Class represents a class or stream taught a fixed set of subjects.
type Class struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Level          string   `json:"level,omitempty"`
	ClassTeacherID string   `json:"classTeacherId,omitempty"`
	SubjectIDs     []string `json:"subjectIds"`
}

// HasSubject reports whether the subject is taught in the class.
func (c Class) HasSubject(subjectID string) bool {
	for _, id := range c.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}
