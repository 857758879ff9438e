// Package fixtures loads the reference and grade data used by the setup tools.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-report-card/internal/models"
)

//go:embed default.yaml
var defaultFixtures []byte

// setupCollections lists fixture collections in write order.
var setupCollections = []string{
	models.CollectionSubjects,
	models.CollectionClasses,
	models.CollectionStaff,
	models.CollectionStudents,
	models.CollectionGrades,
}

type rawFixtures struct {
	Term         string                   `yaml:"term" json:"term"`
	AcademicYear string                   `yaml:"academicYear" json:"academicYear"`
	Subjects     []map[string]interface{} `yaml:"subjects" json:"subjects"`
	Classes      []map[string]interface{} `yaml:"classes" json:"classes"`
	Staff        []map[string]interface{} `yaml:"staff" json:"staff"`
	Students     []map[string]interface{} `yaml:"students" json:"students"`
	Grades       []map[string]interface{} `yaml:"grades" json:"grades"`
	Attendance   []map[string]interface{} `yaml:"attendance" json:"attendance"`
}

// Rejected is a fixture record dropped during canonicalisation.
type Rejected struct {
	Collection string
	Index      int
	Err        error
}

// Fixtures holds canonical records per collection for one term.
type Fixtures struct {
	Term         string
	AcademicYear string
	Collections  map[string][]models.Record
	Attendance   map[string]models.Attendance
	Rejected     []Rejected
}

// Load reads fixtures from path, or the embedded defaults when path is empty.
func Load(path string) (*Fixtures, error) {
	if path == "" {
		return Parse(defaultFixtures, "yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Parse(data, format)
}

// Parse decodes YAML or JSON fixtures and canonicalises every record.
func Parse(data []byte, format string) (*Fixtures, error) {
	var raw rawFixtures
	switch format {
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode json fixtures: %w", err)
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml fixtures: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported fixture format %q", format)
	}
	if raw.Term == "" || raw.AcademicYear == "" {
		return nil, errors.New("fixtures must declare term and academicYear")
	}

	fx := &Fixtures{
		Term:         raw.Term,
		AcademicYear: raw.AcademicYear,
		Collections:  make(map[string][]models.Record, len(setupCollections)),
		Attendance:   make(map[string]models.Attendance, len(raw.Attendance)),
	}
	sources := map[string][]map[string]interface{}{
		models.CollectionSubjects: raw.Subjects,
		models.CollectionClasses:  raw.Classes,
		models.CollectionStaff:    raw.Staff,
		models.CollectionStudents: raw.Students,
		models.CollectionGrades:   raw.Grades,
	}
	for _, collection := range setupCollections {
		records := make([]models.Record, 0, len(sources[collection]))
		for i, item := range sources[collection] {
			rec, err := Canonicalize(collection, item)
			if err == nil {
				err = checkRecord(collection, rec)
			}
			if err != nil {
				fx.Rejected = append(fx.Rejected, Rejected{Collection: collection, Index: i, Err: err})
				continue
			}
			records = append(records, rec)
		}
		fx.Collections[collection] = records
	}

	for i, item := range raw.Attendance {
		rec, _ := Canonicalize("attendance", item)
		var entry struct {
			StudentID   string `json:"studentId"`
			DaysPresent int    `json:"daysPresent"`
			DaysAbsent  int    `json:"daysAbsent"`
		}
		if err := models.FromRecord(rec, &entry); err != nil || entry.StudentID == "" {
			fx.Rejected = append(fx.Rejected, Rejected{Collection: "attendance", Index: i, Err: fmt.Errorf("invalid attendance entry: %v", err)})
			continue
		}
		fx.Attendance[entry.StudentID] = models.NewAttendance(entry.DaysPresent, entry.DaysAbsent)
	}
	return fx, nil
}

// CollectionNames returns fixture collection names in write order.
func (f *Fixtures) CollectionNames() []string {
	return append([]string(nil), setupCollections...)
}

// Students decodes the student fixtures.
func (f *Fixtures) Students() ([]models.Student, error) {
	return decodeAll[models.Student](f.Collections[models.CollectionStudents])
}

// Classes decodes the class fixtures.
func (f *Fixtures) Classes() ([]models.Class, error) {
	return decodeAll[models.Class](f.Collections[models.CollectionClasses])
}

// Subjects decodes the subject fixtures.
func (f *Fixtures) Subjects() ([]models.Subject, error) {
	return decodeAll[models.Subject](f.Collections[models.CollectionSubjects])
}

// Grades decodes the grade fixtures.
func (f *Fixtures) Grades() ([]models.Grade, error) {
	return decodeAll[models.Grade](f.Collections[models.CollectionGrades])
}

// checkRecord decodes rec into its model so a malformed record is rejected
// on its own instead of failing every report card later.
func checkRecord(collection string, rec models.Record) error {
	switch collection {
	case models.CollectionSubjects:
		return decodeOne[models.Subject](rec)
	case models.CollectionClasses:
		return decodeOne[models.Class](rec)
	case models.CollectionStudents:
		return decodeOne[models.Student](rec)
	case models.CollectionGrades:
		return decodeOne[models.Grade](rec)
	}
	return nil
}

func decodeOne[T any](rec models.Record) error {
	var item T
	if err := models.FromRecord(rec, &item); err != nil {
		id, _ := rec.ID(models.DefaultIDField)
		return fmt.Errorf("invalid record %q: %w", id, err)
	}
	return nil
}

func decodeAll[T any](records []models.Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var item T
		if err := models.FromRecord(rec, &item); err != nil {
			id, _ := rec.ID(models.DefaultIDField)
			return nil, fmt.Errorf("decode fixture %q: %w", id, err)
		}
		out = append(out, item)
	}
	return out, nil
}
