package fixtures

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// fieldAliases maps lower-cased source keys to canonical field names.
var fieldAliases = map[string]string{
	"id": "id",

	"name":        "name",
	"fullname":    "name",
	"full_name":   "name",
	"displayname": "name",
	"studentname": "name",

	"department":      "department",
	"dept":            "department",
	"departmentname":  "department",
	"department_name": "department",

	"classid":  "classId",
	"class_id": "classId",
	"class":    "classId",

	"studentid":  "studentId",
	"student_id": "studentId",

	"subjectid":  "subjectId",
	"subject_id": "subjectId",

	"subjectids":  "subjectIds",
	"subject_ids": "subjectIds",
	"subjects":    "subjectIds",

	"academicyear":  "academicYear",
	"academic_year": "academicYear",
	"year":          "academicYear",

	"term":            "term",
	"scores":          "scores",
	"percentage":      "percentage",
	"lettergrade":     "letterGrade",
	"status":          "status",
	"remarks":         "remarks",
	"code":            "code",
	"core":            "core",
	"level":           "level",
	"gender":          "gender",
	"email":           "email",
	"role":            "role",
	"password":        "password",
	"passwordhash":    "passwordHash",
	"admissionnumber": "admissionNumber",
	"admission_no":    "admissionNumber",

	"classteacherid":   "classTeacherId",
	"class_teacher_id": "classTeacherId",
	"classteacher":     "classTeacherId",

	"assessmentinfo": "assessmentInfo",
	"assessment":     "assessmentInfo",
	"scheme":         "scheme",
	"components":     "components",
	"weight":         "weight",

	"dayspresent":  "daysPresent",
	"days_present": "daysPresent",
	"daysabsent":   "daysAbsent",
	"days_absent":  "daysAbsent",
}

// opaqueFields keep their nested keys untouched. Score keys are component codes.
var opaqueFields = map[string]bool{"scores": true}

// textFields are identifiers stored as strings even when the source writes
// them as bare numbers, e.g. `academicYear: 2024`.
var textFields = map[string]bool{
	"id":              true,
	"studentId":       true,
	"subjectId":       true,
	"classId":         true,
	"classTeacherId":  true,
	"term":            true,
	"academicYear":    true,
	"code":            true,
	"level":           true,
	"admissionNumber": true,
	"subjectIds":      true,
}

// Canonicalize renames known field aliases to their canonical names, once, at
// ingestion. Unknown fields are kept as they are. Staff records must carry a
// department.
func Canonicalize(collection string, raw map[string]interface{}) (models.Record, error) {
	rec := canonicalMap(raw)

	if collection == models.CollectionStaff {
		dept, _ := rec["department"].(string)
		if strings.TrimSpace(dept) == "" {
			id, _ := rec.ID(models.DefaultIDField)
			return nil, appErrors.Clone(appErrors.ErrMissingDepartment, fmt.Sprintf("staff %q has no department", id))
		}
	}
	return rec, nil
}

func canonicalMap(raw map[string]interface{}) models.Record {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	// Canonical spellings win over aliases; ties resolve alphabetically.
	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool {
		return isCanonicalKey(keys[i]) && !isCanonicalKey(keys[j])
	})

	rec := make(models.Record, len(raw))
	for _, key := range keys {
		value := raw[key]
		name, known := fieldAliases[strings.ToLower(key)]
		if !known {
			name = key
		}
		if existing, taken := rec[name]; taken && !isBlank(existing) {
			continue
		}
		switch {
		case opaqueFields[name]:
			rec[name] = stringKeys(value)
		case textFields[name]:
			rec[name] = textValue(value)
		default:
			rec[name] = canonicalValue(value)
		}
	}
	return rec
}

func canonicalValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return map[string]interface{}(canonicalMap(v))
	case map[interface{}]interface{}:
		return map[string]interface{}(canonicalMap(stringKeys(v).(map[string]interface{})))
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = canonicalValue(item)
		}
		return out
	default:
		return value
	}
}

func textValue(value interface{}) interface{} {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = textValue(item)
		}
		return out
	default:
		return value
	}
}

func stringKeys(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = item
		}
		return out
	default:
		return value
	}
}

func isCanonicalKey(key string) bool {
	name, ok := fieldAliases[strings.ToLower(key)]
	return ok && name == key
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
