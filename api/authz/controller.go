package authz

import (
	"net/http"

	"iam/api/response"
	"iam/application/permission"
	"iam/domain/role"
	"iam/domain/shared"

	"github.com/gin-gonic/gin"
)

// Controller answers read-only authorization questions for other services.
type Controller struct {
	checker *permission.Checker
}

// NewController Create authorization controller
func NewController(checker *permission.Checker) *Controller {
	return &Controller{checker: checker}
}

// RegisterRoutes Register authorization routes
func (c *Controller) RegisterRoutes(router gin.IRoutes) {
	router.GET("/authz/check", c.Check)
	router.GET("/authz/grants", c.Grants)
}

// GrantsQuery selects the roles to evaluate, e.g. ?tenant_id=..&role_id=a&role_id=b
type GrantsQuery struct {
	TenantID string   `form:"tenant_id" binding:"required"`
	RoleIDs  []string `form:"role_id" binding:"required,min=1"`
}

// CheckQuery GrantsQuery plus the requested resource and action.
type CheckQuery struct {
	GrantsQuery
	Resource string `form:"resource" binding:"required"`
	Action   string `form:"action" binding:"required"`
}

// CheckResponse Authorization decision
type CheckResponse struct {
	Allowed  bool   `json:"allowed"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Check Evaluate one resource:action against the roles
func (c *Controller) Check(ctx *gin.Context) {
	var q CheckQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		response.HandleError(ctx, err, "Invalid query parameters", http.StatusBadRequest)
		return
	}
	tenantID, roleIDs, err := parseScope(q.GrantsQuery)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	allowed, err := c.checker.HasPermission(ctx.Request.Context(), tenantID, roleIDs, q.Resource, q.Action)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, CheckResponse{Allowed: allowed, Resource: q.Resource, Action: q.Action}, "Permission evaluated")
}

// Grants List effective permission strings of the roles
func (c *Controller) Grants(ctx *gin.Context) {
	var q GrantsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		response.HandleError(ctx, err, "Invalid query parameters", http.StatusBadRequest)
		return
	}
	tenantID, roleIDs, err := parseScope(q)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	grants, err := c.checker.EffectiveGrants(ctx.Request.Context(), tenantID, roleIDs)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	if grants == nil {
		grants = []string{}
	}

	response.HandleSuccess(ctx, gin.H{"grants": grants}, "Grants retrieved")
}

func parseScope(q GrantsQuery) (shared.TenantID, []role.RoleID, error) {
	tenantID, err := shared.NewTenantID(q.TenantID)
	if err != nil {
		return shared.TenantID{}, nil, err
	}
	roleIDs := make([]role.RoleID, 0, len(q.RoleIDs))
	for _, raw := range q.RoleIDs {
		id, err := role.NewRoleID(raw)
		if err != nil {
			return shared.TenantID{}, nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	return tenantID, roleIDs, nil
}
