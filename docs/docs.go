// Package docs registers the OpenAPI description served at /swagger.
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
        "/api/v1/sign/{token}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["signing"],
                "summary": "Signing view for a recipient token",
                "parameters": [
                    {"type": "string", "description": "Recipient token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SigningView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "410": {"description": "Gone", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/sign/{token}/fields/{fieldId}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["signing"],
                "summary": "Insert or un-insert a field value",
                "parameters": [
                    {"type": "string", "description": "Recipient token", "name": "token", "in": "path", "required": true},
                    {"type": "integer", "description": "Field ID", "name": "fieldId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Field"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/sign/{token}/complete": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["signing"],
                "summary": "Complete signing for a recipient",
                "parameters": [
                    {"type": "string", "description": "Recipient token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.CompleteResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/sign/{token}/two-factor": {
            "post": {
                "produces": ["application/json"],
                "tags": ["signing"],
                "summary": "Send a two-factor code to the recipient",
                "parameters": [
                    {"type": "string", "description": "Recipient token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.IssuedTwoFactor"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "reason": {"type": "string"},
                "message": {"type": "string"},
                "redirect": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "error": {"$ref": "#/definitions/handler.errorEnvelope"}
            }
        },
        "model.Field": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "envelope_id": {"type": "string"},
                "recipient_id": {"type": "integer"},
                "type": {"type": "string"},
                "custom_text": {"type": "string"},
                "inserted": {"type": "boolean"}
            }
        },
        "service.CompleteResult": {
            "type": "object",
            "properties": {
                "redirectTarget": {"type": "string"},
                "envelopeId": {"type": "string"},
                "envelopeCompleted": {"type": "boolean"}
            }
        },
        "service.IssuedTwoFactor": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "string"}
            }
        },
        "service.SigningView": {
            "type": "object",
            "properties": {
                "envelope": {"type": "object"},
                "recipient": {"type": "object"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/model.Field"}},
                "remaining_fields": {"type": "array", "items": {"$ref": "#/definitions/model.Field"}},
                "access_auth": {"type": "array", "items": {"type": "string"}},
                "action_auth": {"type": "array", "items": {"type": "string"}},
                "is_recipient_turn": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Signing API",
	Description:      "Recipient signing flow: field insertion, completion and two-factor codes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
