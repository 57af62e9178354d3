package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus API",
        "description": "Multi-tenant school management gateway",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Account registration and token lifecycle"},
        {"name": "Applications", "description": "Enrollment application intake and review"},
        {"name": "Attendance", "description": "Attendance session lifecycle"},
        {"name": "Exams", "description": "Exam scheduling, marks and publication"},
        {"name": "Enrollments", "description": "Enrollment records and batch promotion"},
        {"name": "Reports", "description": "Attendance and grade reports with CSV/PDF export"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student or parent account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Token revoked or expired"}
                }
            }
        },
        "/applications/student": {
            "post": {
                "tags": ["Applications"],
                "summary": "Apply to a school as an unattached student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitStudentSelfRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Open application already exists"}
                }
            }
        },
        "/applications/parent-student": {
            "post": {
                "tags": ["Applications"],
                "summary": "Apply on behalf of a child",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitParentStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/employee": {
            "post": {
                "tags": ["Applications"],
                "summary": "Apply to a school as staff",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitEmployeeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/applications/{id}/approve": {
            "post": {
                "tags": ["Applications"],
                "summary": "Approve an application and run its side effects",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReviewDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Application already decided"}
                }
            }
        },
        "/schools/{schoolId}/attendance/sessions/{id}/submit": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Submit a draft attendance session",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session is not in draft"}
                }
            }
        },
        "/schools/{schoolId}/exams/{id}/publish": {
            "post": {
                "tags": ["Exams"],
                "summary": "Publish exam results",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Exam already published"}
                }
            }
        },
        "/schools/{schoolId}/enrollments/promote": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Promote a year's active students",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PromoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-student summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/reports/attendance/classes/{classId}/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export the class attendance report",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["STUDENT", "PARENT"]}
            },
            "required": ["email", "password", "full_name", "role"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "SubmitStudentSelfRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "class_id": {"type": "string"},
                "section_id": {"type": "string"}
            },
            "required": ["school_id", "class_id"]
        },
        "SubmitParentStudentRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "pending_profile_id": {"type": "string"},
                "child_user_id": {"type": "string"},
                "class_id": {"type": "string"},
                "section_id": {"type": "string"}
            },
            "required": ["school_id", "class_id"]
        },
        "SubmitEmployeeRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "sub_role_key": {"type": "string"},
                "custom_sub_role_name": {"type": "string"}
            },
            "required": ["school_id"]
        },
        "ReviewDecisionRequest": {
            "type": "object",
            "properties": {
                "notes": {"type": "string"}
            }
        },
        "PromoteRequest": {
            "type": "object",
            "properties": {
                "from_year_id": {"type": "string"},
                "to_year_id": {"type": "string"}
            },
            "required": ["from_year_id", "to_year_id"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
