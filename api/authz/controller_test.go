package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"iam/application/permission"
	"iam/domain/role"
	"iam/domain/shared"
	"iam/infrastructure/persistence/eventsourced"
	"iam/infrastructure/persistence/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*gin.Engine, shared.TenantID, role.RoleID) {
	t.Helper()
	repo := eventsourced.NewRoleRepository(memory.NewEventStore(), eventsourced.Options{})
	tenant := shared.GenerateTenantID()

	id := role.GenerateRoleID()
	name, err := role.NewName("editors")
	require.NoError(t, err)
	agg := role.NewAggregate()
	require.NoError(t, agg.CreateRole(role.CreateRoleParams{
		ID:          id,
		Name:        name,
		Type:        role.TypeUser,
		TenantID:    tenant,
		Settings:    role.DefaultSettings(),
		Permissions: []role.Permission{role.MustPermission("doc", "*")},
		CreatedBy:   "seed",
	}))
	require.NoError(t, agg.ActivateRole())
	require.NoError(t, repo.Save(context.Background(), agg))

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewController(permission.NewChecker(repo)).RegisterRoutes(engine)
	return engine, tenant, id
}

func get(engine *gin.Engine, path string, q url.Values) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil))
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCheck(t *testing.T) {
	engine, tenant, id := setup(t)

	q := url.Values{"tenant_id": {tenant.String()}, "role_id": {id.String()}, "resource": {"doc"}, "action": {"delete"}}
	w, env := get(engine, "/authz/check", q)
	require.Equal(t, http.StatusOK, w.Code)
	var decision CheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.True(t, decision.Allowed)

	q.Set("resource", "billing")
	_, env = get(engine, "/authz/check", q)
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.False(t, decision.Allowed)
}

func TestCheckErrors(t *testing.T) {
	engine, tenant, id := setup(t)

	w, env := get(engine, "/authz/check", url.Values{"tenant_id": {tenant.String()}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", env.Error)

	q := url.Values{"tenant_id": {"not-a-uuid"}, "role_id": {id.String()}, "resource": {"doc"}, "action": {"read"}}
	w, env = get(engine, "/authz/check", q)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error)

	q.Set("tenant_id", shared.GenerateTenantID().String())
	w, env = get(engine, "/authz/check", q)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error)
}

func TestGrants(t *testing.T) {
	engine, tenant, id := setup(t)

	q := url.Values{"tenant_id": {tenant.String()}, "role_id": {id.String(), role.GenerateRoleID().String()}}
	w, env := get(engine, "/authz/grants", q)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Grants []string `json:"grants"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, []string{"doc:*"}, body.Grants)
}
