package fixtures

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

func TestCanonicalizeAliases(t *testing.T) {
	rec, err := Canonicalize(models.CollectionStudents, map[string]interface{}{
		"id":       "stu-9",
		"fullName": "Faith Akello",
		"class_id": "s1",
		"nickname": "Fay",
	})
	require.NoError(t, err)
	assert.Equal(t, "Faith Akello", rec["name"])
	assert.Equal(t, "s1", rec["classId"])
	assert.Equal(t, "Fay", rec["nickname"])
	assert.NotContains(t, rec, "fullName")
}

func TestCanonicalizePrefersCanonicalSpelling(t *testing.T) {
	rec, err := Canonicalize(models.CollectionSubjects, map[string]interface{}{
		"dept":       "Old Department",
		"department": "Sciences",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sciences", rec["department"])
}

func TestCanonicalizeKeepsScoreCodes(t *testing.T) {
	rec, err := Canonicalize(models.CollectionGrades, map[string]interface{}{
		"id":     "g1",
		"scores": map[string]interface{}{"midTerm": 40, "year": 10},
	})
	require.NoError(t, err)
	scores := rec["scores"].(map[string]interface{})
	assert.Contains(t, scores, "midTerm")
	assert.Contains(t, scores, "year")
}

func TestCanonicalizeStaffRequiresDepartment(t *testing.T) {
	_, err := Canonicalize(models.CollectionStaff, map[string]interface{}{"id": "staff-9", "name": "No Dept"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMissingDepartment))

	rec, err := Canonicalize(models.CollectionStaff, map[string]interface{}{"id": "staff-9", "departmentName": "Languages"})
	require.NoError(t, err)
	assert.Equal(t, "Languages", rec["department"])
}

func TestLoadDefaultFixtures(t *testing.T) {
	fx, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "term1", fx.Term)
	assert.Equal(t, "2024", fx.AcademicYear)
	assert.Empty(t, fx.Rejected)

	students, err := fx.Students()
	require.NoError(t, err)
	require.Len(t, students, 5)
	assert.Equal(t, "Chloe Namutebi", students[2].Name)
	assert.Equal(t, "s4-east", students[2].ClassID)

	subjects, err := fx.Subjects()
	require.NoError(t, err)
	var history models.Subject
	for _, s := range subjects {
		if s.ID == "hist" {
			history = s
		}
	}
	require.NotNil(t, history.AssessmentInfo)
	assert.Len(t, history.AssessmentInfo.Components, 3)
	assert.Equal(t, "Humanities", history.Department)

	grades, err := fx.Grades()
	require.NoError(t, err)
	assert.Equal(t, 82.0, grades[0].Scores["midTerm"])

	assert.Equal(t, 60, fx.Attendance["stu-004"].TotalDays)
}

func TestParseRejectsStaffWithoutDepartmentOnly(t *testing.T) {
	data := []byte(`{
		"term": "term2",
		"academicYear": "2025",
		"staff": [
			{"id": "a", "name": "Has Dept", "dept": "Sciences"},
			{"id": "b", "name": "Missing Dept"}
		]
	}`)

	fx, err := Parse(data, "json")
	require.NoError(t, err)
	assert.Len(t, fx.Collections[models.CollectionStaff], 1)
	require.Len(t, fx.Rejected, 1)
	assert.Equal(t, models.CollectionStaff, fx.Rejected[0].Collection)
	assert.Equal(t, 1, fx.Rejected[0].Index)
}

func TestParseRequiresTerm(t *testing.T) {
	_, err := Parse([]byte(`subjects: []`), "yaml")
	assert.Error(t, err)

	_, err = Parse([]byte(`term: t`), "toml")
	assert.Error(t, err)
}

func TestParseStringifiesNumericIdentifiers(t *testing.T) {
	data := []byte(`
term: term1
academicYear: 2024
classes:
  - id: 4
    name: Senior Four
    subjectIds: [101, math]
grades:
  - id: g1
    studentId: 7
    subjectId: math
    term: term1
    academicYear: 2024
    status: published
    scores: {midTerm: 60, endTerm: 70}
`)

	fx, err := Parse(data, "yaml")
	require.NoError(t, err)
	assert.Empty(t, fx.Rejected)
	assert.Equal(t, "2024", fx.AcademicYear)

	grades, err := fx.Grades()
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "2024", grades[0].AcademicYear)
	assert.Equal(t, "7", grades[0].StudentID)

	classes, err := fx.Classes()
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "4", classes[0].ID)
	assert.Equal(t, []string{"101", "math"}, classes[0].SubjectIDs)
}

func TestParseRejectsUndecodableRecordOnly(t *testing.T) {
	data := []byte(`
term: term1
academicYear: "2024"
grades:
  - id: g1
    studentId: stu-1
    subjectId: math
    term: term1
    academicYear: "2024"
    status: published
    scores: {midTerm: 60, endTerm: 70}
  - id: g2
    studentId: stu-1
    subjectId: eng
    term: term1
    academicYear: "2024"
    status: published
    scores: high
`)

	fx, err := Parse(data, "yaml")
	require.NoError(t, err)
	require.Len(t, fx.Rejected, 1)
	assert.Equal(t, models.CollectionGrades, fx.Rejected[0].Collection)
	assert.Equal(t, 1, fx.Rejected[0].Index)
	assert.Contains(t, fx.Rejected[0].Err.Error(), `"g2"`)

	grades, err := fx.Grades()
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "g1", grades[0].ID)
}
