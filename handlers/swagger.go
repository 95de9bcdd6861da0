package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the API description.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>devconnector API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the public routes.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "devconnector-api", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Profile": {"type":"object","properties":{"_id":{"type":"string"},"user":{"type":"object","properties":{"_id":{"type":"string"},"name":{"type":"string"},"avatar":{"type":"string"}}},"company":{"type":"string"},"website":{"type":"string"},"location":{"type":"string"},"status":{"type":"string"},"skills":{"type":"array","items":{"type":"string"}},"bio":{"type":"string"},"githubusername":{"type":"string"},"social":{"type":"object"},"experience":{"type":"array","items":{"type":"object"}},"education":{"type":"array","items":{"type":"object"}},"date":{"type":"string","format":"date-time"}}},
      "Errors": {"type":"object","properties":{"errors":{"type":"array","items":{"type":"object","properties":{"msg":{"type":"string"},"param":{"type":"string"},"location":{"type":"string"}}}}}}
    }
  },
  "paths": {
    "/api/users": {
      "post": { "summary": "Register", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "token and refreshToken" }, "400": { "description": "validation failed or user exists" } } }
    },
    "/api/auth": {
      "get": { "summary": "Current user", "security": [{"bearer": []}], "responses": { "200": { "description": "user" }, "401": { "description": "missing or invalid token" } } },
      "post": { "summary": "Login", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "token and refreshToken" }, "400": { "description": "invalid credentials" } } }
    },
    "/api/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/profile": {
      "get": { "summary": "List profiles", "responses": { "200": { "description": "profiles", "content": { "application/json": { "schema": {"type":"array","items":{"$ref":"#/components/schemas/Profile"}}}} } } },
      "post": { "summary": "Create or update own profile", "security": [{"bearer": []}], "responses": { "200": { "description": "profile" }, "400": { "description": "validation failed", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Errors"}}} } } },
      "delete": { "summary": "Delete own profile and user", "security": [{"bearer": []}], "responses": { "200": { "description": "deleted" } } }
    },
    "/api/profile/me": {
      "get": { "summary": "Own profile", "security": [{"bearer": []}], "responses": { "200": { "description": "profile" }, "400": { "description": "no profile" } } }
    },
    "/api/profile/user/{user_id}": {
      "get": { "summary": "Profile by user id", "parameters": [{"name":"user_id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "profile" }, "400": { "description": "profile not found" } } }
    },
    "/api/profile/experience": {
      "put": { "summary": "Add experience", "security": [{"bearer": []}], "responses": { "200": { "description": "profile" }, "400": { "description": "validation failed" } } }
    },
    "/api/profile/experience/{exp_id}": {
      "delete": { "summary": "Remove experience", "security": [{"bearer": []}], "parameters": [{"name":"exp_id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "profile" } } }
    },
    "/api/profile/education": {
      "put": { "summary": "Add education", "security": [{"bearer": []}], "responses": { "200": { "description": "profile" }, "400": { "description": "validation failed" } } }
    },
    "/api/profile/education/{edu_id}": {
      "delete": { "summary": "Remove education", "security": [{"bearer": []}], "parameters": [{"name":"edu_id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "profile" } } }
    },
    "/api/users/me/avatar": {
      "post": { "summary": "Upload avatar", "security": [{"bearer": []}], "responses": { "200": { "description": "avatar path" }, "400": { "description": "not an image or too large" } } }
    },
    "/api/users/{id}/avatar": {
      "get": { "summary": "Avatar redirect", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "302": { "description": "presigned object URL" }, "404": { "description": "no uploaded avatar" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
