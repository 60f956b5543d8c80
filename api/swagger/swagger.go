package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Arena Session API",
        "description": "Session and token authentication for the arena game, with profile, game settings and game log endpoints",
        "version": "1.0.0"
    },
    "basePath": "/v1",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, refresh, keep-alive and logout"},
        {"name": "Users", "description": "Profile of the logged in user"},
        {"name": "Game", "description": "Game settings and game logs"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "CSRF": {"type": "apiKey", "name": "X-XSRF-Token", "in": "header"}
    },
    "paths": {
        "/signup": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign up",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/OKResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Log in",
                "description": "Opens a session and sets the refreshToken, xsrf-token and auth-token cookies",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionResponse"}},
                    "400": {"description": "Unknown email", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Wrong password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/refresh": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Refresh session",
                "description": "Expires the current session and opens a new one with fresh tokens",
                "security": [{"BearerAuth": [], "CSRF": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Missing CSRF token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Session not rotated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/session": {
            "put": {
                "tags": ["Authentication"],
                "summary": "Keep session alive",
                "security": [{"BearerAuth": [], "CSRF": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Missing CSRF token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Log out",
                "security": [{"BearerAuth": [], "CSRF": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/OKResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Session not expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/user": {
            "get": {
                "tags": ["Users"],
                "summary": "Get current user",
                "security": [{"BearerAuth": [], "CSRF": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/update-user": {
            "put": {
                "tags": ["Users"],
                "summary": "Update current user",
                "security": [{"BearerAuth": [], "CSRF": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UserResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/game-settings": {
            "get": {
                "tags": ["Game"],
                "summary": "Get game settings",
                "security": [{"BearerAuth": [], "CSRF": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GameSettingsResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/update-game-settings": {
            "put": {
                "tags": ["Game"],
                "summary": "Update game settings",
                "description": "Changes settings, records a finished game and appends its commentary to the game log",
                "security": [{"BearerAuth": [], "CSRF": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateGameSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GameSettingsResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/download-game-log": {
            "get": {
                "tags": ["Game"],
                "summary": "Download a game log",
                "produces": ["text/plain"],
                "security": [{"BearerAuth": [], "CSRF": []}],
                "parameters": [
                    {"name": "game", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Log file", "schema": {"type": "file"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["name", "email", "password", "avatar"],
            "properties": {
                "name": {"type": "string", "minLength": 6, "maxLength": 100},
                "email": {"type": "string", "format": "email"},
                "password": {"type": "string", "minLength": 6, "maxLength": 100},
                "avatar": {"type": "string", "enum": ["witch", "archer", "boxer", "ninja"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string", "format": "email"},
                "password": {"type": "string"}
            }
        },
        "UpdateUserRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "minLength": 6, "maxLength": 100},
                "email": {"type": "string", "format": "email"}
            }
        },
        "UpdateGameSettingsRequest": {
            "type": "object",
            "properties": {
                "playerName": {"type": "string", "maxLength": 100},
                "gameTime": {"type": "integer", "minimum": 5},
                "won": {"type": "boolean"},
                "lost": {"type": "boolean"},
                "commentary": {"type": "string"},
                "avatar": {"type": "string", "enum": ["witch", "archer", "boxer", "ninja"]}
            }
        },
        "SessionSummary": {
            "type": "object",
            "properties": {
                "expiry": {"type": "integer", "description": "epoch milliseconds"},
                "name": {"type": "string"},
                "avatar": {"type": "string"}
            }
        },
        "SessionResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "session": {"$ref": "#/definitions/SessionSummary"}
            }
        },
        "UserProfile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "avatar": {"type": "string"}
            }
        },
        "UserResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "user": {"$ref": "#/definitions/UserProfile"}
            }
        },
        "GameSettings": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "playerName": {"type": "string"},
                "gameTime": {"type": "integer"},
                "wins": {"type": "integer"},
                "losses": {"type": "integer"},
                "gamesPlayed": {"type": "integer"}
            }
        },
        "GameSettingsResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "settings": {"$ref": "#/definitions/GameSettings"}
            }
        },
        "OKResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "code": {"type": "string"},
                "data": {"type": "object"}
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
