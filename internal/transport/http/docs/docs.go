// Package docs registers the OpenAPI document served at /openapi.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in",
                "description": "Records a new login for the user. Earlier credentials of the same user become superseded.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/webapi.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/webapi.LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Log out",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Current user",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/auth/check-session": {
            "get": {
                "tags": ["Auth"],
                "summary": "Check whether the presented credential is still current",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.Result"}}
                }
            }
        },
        "/activity": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Activity"],
                "summary": "List activity entries, oldest first",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "agent", "in": "query"},
                    {"type": "string", "enum": ["info", "warning", "error"], "name": "level", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/webapi.ActivityListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            },
            "post": {
                "tags": ["Activity"],
                "summary": "Record an activity entry and broadcast it",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/webapi.CreateActivityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/webapi.CreateActivityResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/activity/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Activity"],
                "summary": "Live activity stream over websocket",
                "parameters": [
                    {"type": "string", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"}
                }
            }
        },
        "/presence/heartbeat": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Presence"],
                "summary": "Mark the caller's tab as online",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/presence/online": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Presence"],
                "summary": "List online users",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/webapi.OnlineResponse"}}
                }
            }
        },
        "/system/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["System"],
                "summary": "Host and server status",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/webapi.SystemStatus"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "message": {"type": "string"},
                "code": {"type": "integer"}
            }
        },
        "session.Result": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "reason": {"type": "string", "enum": ["no_session", "user_not_found", "logged_in_elsewhere", "error"]}
            }
        },
        "activity.Entry": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "userId": {"type": "integer"},
                "agent": {"type": "string"},
                "action": {"type": "string"},
                "details": {"type": "string"},
                "level": {"type": "string", "enum": ["info", "warning", "error"]},
                "metadata": {"type": "object"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "presence.UserSummary": {
            "type": "object",
            "properties": {
                "userId": {"type": "integer"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "lastSeen": {"type": "string", "format": "date-time"},
                "sessions": {"type": "integer"}
            }
        },
        "webapi.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "webapi.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"},
                "login_time": {"type": "string", "format": "date-time"},
                "user": {"type": "object"}
            }
        },
        "webapi.CreateActivityRequest": {
            "type": "object",
            "required": ["agent", "action", "details"],
            "properties": {
                "agent": {"type": "string"},
                "action": {"type": "string"},
                "details": {"type": "string"},
                "level": {"type": "string", "enum": ["info", "warning", "error"]},
                "metadata": {"type": "object"}
            }
        },
        "webapi.CreateActivityResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "created": {"type": "boolean"}
            }
        },
        "webapi.ActivityListResponse": {
            "type": "object",
            "properties": {
                "logs": {"type": "array", "items": {"$ref": "#/definitions/activity.Entry"}}
            }
        },
        "webapi.OnlineResponse": {
            "type": "object",
            "properties": {
                "users": {"type": "array", "items": {"$ref": "#/definitions/presence.UserSummary"}},
                "count": {"type": "integer"}
            }
        },
        "webapi.SystemStatus": {
            "type": "object",
            "properties": {
                "cpuPercent": {"type": "number"},
                "memPercent": {"type": "number"},
                "online": {"type": "integer"},
                "observers": {"type": "integer"},
                "uptimeSeconds": {"type": "integer"},
                "goroutines": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "agentdeck API",
	Description:      "Session, presence and activity endpoints of the agentdeck dashboard.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
