package models

// Document collection names.
const (
	CollectionStudents    = "students"
	CollectionClasses     = "classes"
	CollectionSubjects    = "subjects"
	CollectionGrades      = "grades"
	CollectionStaff       = "staff"
	CollectionReportCards = "reportCards"
)

// DefaultIDField is the record field carrying the document id.
const DefaultIDField = "id"

// ReportCardIDField is the id field used for report card documents.
const ReportCardIDField = "reportCardId"
