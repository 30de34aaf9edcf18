package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "PulseFit API",
        "description": "Gym class booking service with waitlist promotion",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Bookings", "description": "Class bookings, waitlist and check-in"},
        {"name": "Schedules", "description": "Weekly class schedule management"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/bookings": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Book a class occurrence",
                "responses": {
                    "201": {"description": "Created (status is confirmed or waitlist)"},
                    "404": {"description": "Class schedule not found"},
                    "409": {"description": "Class full or duplicate booking"}
                }
            }
        },
        "/api/v1/bookings/{id}": {
            "delete": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking, promoting from the waitlist when a confirmed seat frees up",
                "responses": {
                    "200": {"description": "Cancelled booking"},
                    "404": {"description": "Booking not found"}
                }
            }
        },
        "/api/v1/bookings/{id}/check-in": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Check a member in to a class",
                "responses": {
                    "200": {"description": "Attended booking"},
                    "404": {"description": "Booking not found"}
                }
            }
        },
        "/api/v1/bookings/upcoming": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List the caller's upcoming bookings",
                "responses": {
                    "200": {"description": "Bookings ordered by date then start time"}
                }
            }
        },
        "/api/v1/bookings/next": {
            "get": {
                "tags": ["Bookings"],
                "summary": "The caller's next booked class",
                "responses": {
                    "200": {"description": "Next booking or null"}
                }
            }
        },
        "/api/v1/bookings/history": {
            "get": {
                "tags": ["Bookings"],
                "summary": "The caller's booking history",
                "responses": {
                    "200": {"description": "Bookings ordered by date descending"}
                }
            }
        },
        "/api/v1/bookings/check": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Whether the caller already booked a class occurrence",
                "responses": {
                    "200": {"description": "Boolean result"}
                }
            }
        },
        "/api/v1/class-schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List class schedules",
                "responses": {
                    "200": {"description": "Schedules with pagination"}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Create a class schedule",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/class-schedules/{id}/next-occurrence": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Resolve the next occurrence date",
                "responses": {
                    "200": {"description": "Date in YYYY-MM-DD"}
                }
            }
        },
        "/api/v1/class-schedules/{id}/roster": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Full roster for one class occurrence",
                "responses": {
                    "200": {"description": "Roster in creation order"}
                }
            }
        }
    },
    "definitions": {
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
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
