package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scolaplan Timetable API",
        "description": "Scheduling engine for school timetables: slot CRUD with conflict detection, day layout computation, drag-and-drop rescheduling and spreadsheet import reconciliation",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Slots", "description": "Timetable slot management"},
        {"name": "Layout", "description": "Per-day column layout"},
        {"name": "Reschedule", "description": "Drag-and-drop relocation sessions"},
        {"name": "Import", "description": "Spreadsheet import reconciliation"},
        {"name": "Teachers", "description": "Teacher roster"}
    ],
    "paths": {
        "/schools/{schoolId}/slots": {
            "get": {
                "tags": ["Slots"],
                "summary": "List slots",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "day", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "classGroup", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Slots"],
                "summary": "Create slot",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rule violation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots/{id}": {
            "get": {
                "tags": ["Slots"],
                "summary": "Get slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            },
            "put": {
                "tags": ["Slots"],
                "summary": "Update slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Slots"],
                "summary": "Delete slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/schools/{schoolId}/days/{day}/layout": {
            "get": {
                "tags": ["Layout"],
                "summary": "Day layout",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "day", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reschedules": {
            "post": {
                "tags": ["Reschedule"],
                "summary": "Begin a drag session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BeginRescheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reschedules/{sessionId}": {
            "get": {
                "tags": ["Reschedule"],
                "summary": "Get drag session",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Reschedule"],
                "summary": "Cancel drag session",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/reschedules/{sessionId}/preview": {
            "post": {
                "tags": ["Reschedule"],
                "summary": "Preview a target position",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PreviewRescheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reschedules/{sessionId}/drop": {
            "post": {
                "tags": ["Reschedule"],
                "summary": "Drop at previewed position",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Applied or awaiting confirmation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reschedules/{sessionId}/confirm": {
            "post": {
                "tags": ["Reschedule"],
                "summary": "Confirm a conflicted drop",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/imports/reconcile": {
            "post": {
                "tags": ["Import"],
                "summary": "Reconcile spreadsheet rows into slot candidates",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReconcileImportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/imports/commit": {
            "post": {
                "tags": ["Import"],
                "summary": "Commit reconciled candidates",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitImportRequest"}}
                ],
                "responses": {
                    "200": {"description": "Import report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List teachers",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Teachers"],
                "summary": "Create teacher",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTeacherRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schools/{schoolId}/teachers/active": {
            "get": {
                "tags": ["Teachers"],
                "summary": "Active roster",
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}": {
            "put": {
                "tags": ["Teachers"],
                "summary": "Update teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTeacherRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Teachers"],
                "summary": "Deactivate teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "Slot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "school_id": {"type": "string"},
                "day": {"type": "string"},
                "start_minutes": {"type": "integer"},
                "end_minutes": {"type": "integer"},
                "class_group": {"type": "string"},
                "subject": {"type": "string"},
                "teacher_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["REINFORCEMENT", "EVENING"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "CreateSlotRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "start_time": {"type": "string", "example": "08:30"},
                "end_time": {"type": "string", "example": "09:30"},
                "class_group": {"type": "string"},
                "subject": {"type": "string"},
                "teacher_id": {"type": "string"},
                "kind": {"type": "string"}
            },
            "required": ["day", "start_time", "end_time", "class_group", "teacher_id"]
        },
        "UpdateSlotRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "class_group": {"type": "string"},
                "subject": {"type": "string"},
                "teacher_id": {"type": "string"},
                "kind": {"type": "string"}
            }
        },
        "DayLayoutPosition": {
            "type": "object",
            "properties": {
                "slot_id": {"type": "string"},
                "column_index": {"type": "integer"},
                "column_count": {"type": "integer"}
            }
        },
        "BeginRescheduleRequest": {
            "type": "object",
            "properties": {
                "slot_id": {"type": "string"}
            },
            "required": ["slot_id"]
        },
        "PreviewRescheduleRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "start_time": {"type": "string", "example": "10:00"}
            },
            "required": ["day", "start_time"]
        },
        "ReconcileImportRequest": {
            "type": "object",
            "properties": {
                "rows": {
                    "type": "array",
                    "items": {"type": "object", "additionalProperties": {"type": "string"}}
                }
            },
            "required": ["rows"]
        },
        "CommitImportRequest": {
            "type": "object",
            "properties": {
                "candidates": {
                    "type": "array",
                    "items": {"type": "object"}
                }
            },
            "required": ["candidates"]
        },
        "Teacher": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "school_id": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "CreateTeacherRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            },
            "required": ["first_name", "last_name"]
        },
        "UpdateTeacherRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "active": {"type": "boolean"}
            },
            "required": ["first_name", "last_name"]
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
