package handlers

import (
	"testing"

	"github.com/docuvault/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
		"email":     "new@test.com",
		"password":  "password123",
		"firstName": "New",
		"lastName":  "User",
	}, nil)
	assertStatus(t, resp, fiber.StatusCreated)
	body := decodeJSONMap(t, resp)
	data := body["data"].(map[string]any)
	if data["token"] == "" {
		t.Error("expected a token in the register response")
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
			"email":    "new@test.com",
			"password": "password123",
		}, nil)
		assertStatus(t, resp, fiber.StatusConflict)
	})

	t.Run("short password rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
			"email":    "short@test.com",
			"password": "short",
		}, nil)
		assertStatus(t, resp, fiber.StatusBadRequest)
	})

	resp = performJSONRequest(t, env.app, "POST", "/api/auth/login", map[string]any{
		"email":    "new@test.com",
		"password": "password123",
	}, nil)
	assertStatus(t, resp, fiber.StatusOK)
	body = decodeJSONMap(t, resp)
	token := body["data"].(map[string]any)["token"].(string)

	resp = performJSONRequest(t, env.app, "GET", "/api/auth/me", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)
	me := decodeJSONMap(t, resp)["data"].(map[string]any)
	if me["email"] != "new@test.com" {
		t.Errorf("unexpected email %v", me["email"])
	}

	t.Run("wrong password rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, "POST", "/api/auth/login", map[string]any{
			"email":    "new@test.com",
			"password": "wrong-password",
		}, nil)
		assertStatus(t, resp, fiber.StatusUnauthorized)
		assertEnvelopeError(t, decodeJSONMap(t, resp), "invalid credentials")
	})
}

func TestAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "GET", "/api/auth/me", nil, nil)
	assertStatus(t, resp, fiber.StatusUnauthorized)

	resp = performJSONRequest(t, env.app, "GET", "/api/auth/me", nil, authHeaders("not-a-token"))
	assertStatus(t, resp, fiber.StatusUnauthorized)
}

func TestAdminOnlyRoutes(t *testing.T) {
	env := setupTestEnv(t)
	_, employeeToken := createTestUser(t, env.db, "employee@test.com", "password123", models.UserRoleEmployee)
	_, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)

	resp := performJSONRequest(t, env.app, "GET", "/api/users/", nil, authHeaders(employeeToken))
	assertStatus(t, resp, fiber.StatusForbidden)

	resp = performJSONRequest(t, env.app, "GET", "/api/users/", nil, authHeaders(adminToken))
	assertStatus(t, resp, fiber.StatusOK)
}
