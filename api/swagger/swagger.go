package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Report Card API",
        "description": "Grade calculation and report card generation",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Grades", "description": "Subject grade calculation"},
        {"name": "ReportCards", "description": "Report card generation and retrieval"},
        {"name": "Health", "description": "Liveness and metrics"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness and dependency status",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Health"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/grades/calculate": {
            "post": {
                "tags": ["Grades"],
                "summary": "Calculate a subject grade",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CalculateGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid scores or weights", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/report-cards": {
            "post": {
                "tags": ["ReportCards"],
                "summary": "Generate a report card",
                "description": "Assembles the report card for a student and term. Set overwrite to regenerate an existing card.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateReportCardRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Report card already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/report-cards/{id}": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Get a report card",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/report-cards/{id}/pdf": {
            "get": {
                "tags": ["ReportCards"],
                "summary": "Download a report card as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CalculateGradeRequest": {
            "type": "object",
            "properties": {
                "subjectName": {"type": "string"},
                "midTerm": {"type": "number"},
                "endTerm": {"type": "number"},
                "weights": {
                    "type": "object",
                    "properties": {
                        "midTerm": {"type": "number"},
                        "endTerm": {"type": "number"}
                    }
                },
                "scores": {"type": "object", "additionalProperties": {"type": "number"}},
                "assessmentInfo": {"$ref": "#/definitions/AssessmentInfo"}
            }
        },
        "AssessmentInfo": {
            "type": "object",
            "properties": {
                "scheme": {"type": "string", "enum": ["WEIGHTED", "AVERAGE"]},
                "components": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "code": {"type": "string"},
                            "name": {"type": "string"},
                            "weight": {"type": "number"}
                        }
                    }
                }
            }
        },
        "GenerateReportCardRequest": {
            "type": "object",
            "required": ["studentId", "term", "academicYear"],
            "properties": {
                "reportCardId": {"type": "string"},
                "studentId": {"type": "string"},
                "term": {"type": "string"},
                "academicYear": {"type": "string"},
                "overwrite": {"type": "boolean"},
                "rank": {
                    "type": "object",
                    "properties": {
                        "position": {"type": "integer"},
                        "outOf": {"type": "integer"}
                    }
                },
                "attendance": {
                    "type": "object",
                    "properties": {
                        "daysPresent": {"type": "integer"},
                        "daysAbsent": {"type": "integer"}
                    }
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
