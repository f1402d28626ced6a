package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Sync API",
        "description": "Timetable reconciliation, room occupancy and workload",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sync", "description": "Timetable synchronisation cycles"},
        {"name": "Rooms", "description": "Room occupancy and workload"},
        {"name": "Settings", "description": "Calendar settings"},
        {"name": "Calendar", "description": "Group timetables as iCalendar"}
    ],
    "paths": {
        "/sync": {
            "post": {
                "tags": ["Sync"],
                "summary": "Run a synchronisation cycle",
                "responses": {
                    "200": {"description": "Cycle report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Another cycle is running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "No documents could be discovered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/last": {
            "get": {
                "tags": ["Sync"],
                "summary": "Report of the last finished cycle",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No cycle has finished yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/search": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Search rooms by name",
                "parameters": [
                    {"name": "name", "in": "query", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{id}/status": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Room status at an instant",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "at", "in": "query", "type": "string", "format": "date-time"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown room", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{id}/workload": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Room workload percentage",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{id}/info": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Room details with lessons, workload and purpose",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{id}/lessons": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Lessons held in a room on a date",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/occupancy": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Batched occupancy of selected rooms",
                "parameters": [
                    {"name": "campusId", "in": "query", "type": "string", "format": "uuid"},
                    {"name": "roomId", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "room", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "at", "in": "query", "type": "string", "format": "date-time"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/campuses/{id}/workload-report": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Download the workload report of a campus",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file", "schema": {"type": "file"}}
                }
            }
        },
        "/settings/max-week": {
            "get": {
                "tags": ["Settings"],
                "summary": "Current calendar length in weeks",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Change the calendar length",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMaxWeekRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{name}/calendar.ics": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Group timetable as iCalendar",
                "produces": ["text/calendar"],
                "parameters": [
                    {"name": "name", "in": "path", "type": "string", "required": true},
                    {"name": "yearStart", "in": "query", "type": "integer"},
                    {"name": "semester", "in": "query", "type": "integer", "enum": [1, 2]}
                ],
                "responses": {
                    "200": {"description": "iCalendar feed", "schema": {"type": "file"}},
                    "404": {"description": "Group has no lessons", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "UpdateMaxWeekRequest": {
            "type": "object",
            "properties": {
                "maxWeek": {"type": "integer", "minimum": 1, "maximum": 53}
            },
            "required": ["maxWeek"]
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
