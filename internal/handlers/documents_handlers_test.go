package handlers

import (
	"fmt"
	"io"
	"testing"

	"github.com/docuvault/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestDocumentUploadAndVersionLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "author@test.com", "password123", models.UserRoleEmployee)

	resp := performUpload(t, env.app, "/api/documents/upload", "report.txt", []byte("v1 content"), nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusCreated)
	body := decodeJSONMap(t, resp)
	data := body["data"].(map[string]any)
	docID := data["id"].(string)

	if data["versionNumber"].(float64) != 1 {
		t.Errorf("expected version 1, got %v", data["versionNumber"])
	}
	if data["isLatestVersion"] != true {
		t.Error("first upload should be latest")
	}

	resp = performUpload(t, env.app, "/api/documents/"+docID+"/versions", "report.txt", []byte("v2 content"), nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusCreated)
	body = decodeJSONMap(t, resp)
	v2 := body["data"].(map[string]any)["document"].(map[string]any)
	if v2["versionNumber"].(float64) != 2 {
		t.Errorf("expected version 2, got %v", v2["versionNumber"])
	}

	resp = performJSONRequest(t, env.app, "GET", "/api/documents/"+docID+"/versions", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)
	body = decodeJSONMap(t, resp)
	versions := body["data"].([]any)
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	newest := versions[0].(map[string]any)
	if newest["versionNumber"].(float64) != 2 {
		t.Errorf("versions should list newest first, got %v", newest["versionNumber"])
	}

	// Restoring v1 creates v3 with v1's content.
	resp = performJSONRequest(t, env.app, "POST", "/api/documents/"+docID+"/restore", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusCreated)
	body = decodeJSONMap(t, resp)
	restored := body["data"].(map[string]any)["document"].(map[string]any)
	if restored["versionNumber"].(float64) != 3 {
		t.Errorf("restore should create version 3, got %v", restored["versionNumber"])
	}
	if restored["description"] != "Restored from version 1" {
		t.Errorf("unexpected restore description %v", restored["description"])
	}

	restoredID := restored["id"].(string)
	resp = performRequest(t, env.app, "GET", "/api/documents/"+restoredID+"/download", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)
	content, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("failed reading download body: %v", err)
	}
	if string(content) != "v1 content" {
		t.Errorf("restored version should serve v1 content, got %q", string(content))
	}
}

func TestDocumentUploadToRestrictedFolder(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleEmployee)
	_, strangerToken := createTestUser(t, env.db, "stranger@test.com", "password123", models.UserRoleEmployee)

	folder := &models.Folder{Name: "Private", IsRestricted: true, CreatedByID: owner.ID}
	if err := env.db.Create(folder).Error; err != nil {
		t.Fatalf("failed creating folder: %v", err)
	}

	fields := map[string]string{"folderID": folder.ID.String()}

	resp := performUpload(t, env.app, "/api/documents/upload", "secret.txt", []byte("x"), fields, authHeaders(strangerToken))
	assertStatus(t, resp, fiber.StatusForbidden)

	resp = performUpload(t, env.app, "/api/documents/upload", "secret.txt", []byte("x"), fields, authHeaders(ownerToken))
	assertStatus(t, resp, fiber.StatusCreated)
}

func TestDocumentAccessFollowsFolder(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", models.UserRoleEmployee)
	_, strangerToken := createTestUser(t, env.db, "stranger@test.com", "password123", models.UserRoleEmployee)
	_, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)

	folder := &models.Folder{Name: "Private", IsRestricted: true, CreatedByID: owner.ID}
	if err := env.db.Create(folder).Error; err != nil {
		t.Fatalf("failed creating folder: %v", err)
	}

	resp := performUpload(t, env.app, "/api/documents/upload", "doc.txt", []byte("x"), map[string]string{"folderID": folder.ID.String()}, authHeaders(ownerToken))
	assertStatus(t, resp, fiber.StatusCreated)
	docID := decodeJSONMap(t, resp)["data"].(map[string]any)["id"].(string)

	resp = performJSONRequest(t, env.app, "GET", "/api/documents/"+docID, nil, authHeaders(strangerToken))
	assertStatus(t, resp, fiber.StatusForbidden)

	resp = performJSONRequest(t, env.app, "GET", "/api/documents/"+docID, nil, authHeaders(adminToken))
	assertStatus(t, resp, fiber.StatusOK)
}

func TestDocumentCollaborators(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceToken := createTestUser(t, env.db, "alice@test.com", "password123", models.UserRoleEmployee)
	_, bobToken := createTestUser(t, env.db, "bob@test.com", "password123", models.UserRoleEmployee)

	resp := performUpload(t, env.app, "/api/documents/upload", "shared.txt", []byte("v1"), nil, authHeaders(aliceToken))
	assertStatus(t, resp, fiber.StatusCreated)
	docID := decodeJSONMap(t, resp)["data"].(map[string]any)["id"].(string)

	resp = performUpload(t, env.app, "/api/documents/"+docID+"/versions", "shared.txt", []byte("v2"), nil, authHeaders(bobToken))
	assertStatus(t, resp, fiber.StatusCreated)

	resp = performJSONRequest(t, env.app, "GET", "/api/documents/"+docID+"/collaborators", nil, authHeaders(aliceToken))
	assertStatus(t, resp, fiber.StatusOK)
	collaborators := decodeJSONMap(t, resp)["data"].([]any)
	if len(collaborators) != 2 {
		t.Errorf("expected 2 collaborators, got %d", len(collaborators))
	}
}

func TestDocumentNotFound(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "user@test.com", "password123", models.UserRoleEmployee)

	resp := performJSONRequest(t, env.app, "GET", "/api/documents/00000000-0000-0000-0000-000000000001", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusNotFound)

	resp = performJSONRequest(t, env.app, "GET", "/api/documents/not-a-uuid", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "invalid document id")
}

func TestVersionUploadNotifiesCollaborators(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "alice@test.com", "password123", models.UserRoleEmployee)
	bob, bobToken := createTestUser(t, env.db, "bob@test.com", "password123", models.UserRoleEmployee)

	resp := performUpload(t, env.app, "/api/documents/upload", "notes.txt", []byte("v1"), nil, authHeaders(aliceToken))
	assertStatus(t, resp, fiber.StatusCreated)
	docID := decodeJSONMap(t, resp)["data"].(map[string]any)["id"].(string)

	resp = performUpload(t, env.app, "/api/documents/"+docID+"/versions", "notes.txt", []byte("v2"), nil, authHeaders(bobToken))
	assertStatus(t, resp, fiber.StatusCreated)

	var activities []models.Activity
	if err := env.db.Where("user_id = ?", alice.ID).Find(&activities).Error; err != nil {
		t.Fatalf("failed loading activities: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity for alice, got %d", len(activities))
	}
	if activities[0].ActorID != bob.ID {
		t.Errorf("activity actor should be bob")
	}
	expected := fmt.Sprintf("%s uploaded version %d of %q", "Test User", 2, "notes.txt")
	if activities[0].Message != expected {
		t.Errorf("unexpected message %q, want %q", activities[0].Message, expected)
	}

	// The acting user gets no self-notification.
	var bobCount int64
	env.db.Model(&models.Activity{}).Where("user_id = ?", bob.ID).Count(&bobCount)
	if bobCount != 0 {
		t.Errorf("actor should not be notified, got %d activities", bobCount)
	}
}
