package po

import (
	"encoding/json"
	"time"

	"iam/domain/role"
	"iam/domain/user"
)

// RoleViewPO is the role read model row.
type RoleViewPO struct {
	ID             string `gorm:"primaryKey;size:36"`
	TenantID       string `gorm:"size:36;not null;index:idx_role_views_tenant_name,priority:1"`
	OrganizationID string `gorm:"size:36"`
	DepartmentID   string `gorm:"size:36"`
	Name           string `gorm:"size:100;not null;index:idx_role_views_tenant_name,priority:2"`
	Description    string `gorm:"size:500"`
	Type           string `gorm:"size:20;not null"`
	Status         string `gorm:"size:20;not null;index"`
	Permissions    string `gorm:"type:json;not null"` // JSON array of canonical permission strings
	IsSystemRole   bool
	IsDefaultRole  bool
	ExpiresAt      *time.Time `gorm:"index"`
	CreatedBy      string     `gorm:"size:36"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int `gorm:"not null"`
}

func (RoleViewPO) TableName() string {
	return "role_views"
}

func FromRoleView(v *role.View) (RoleViewPO, error) {
	perms := v.Permissions
	if perms == nil {
		perms = []string{}
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return RoleViewPO{}, err
	}
	return RoleViewPO{
		ID:             v.ID,
		TenantID:       v.TenantID,
		OrganizationID: v.OrganizationID,
		DepartmentID:   v.DepartmentID,
		Name:           v.Name,
		Description:    v.Description,
		Type:           string(v.Type),
		Status:         string(v.Status),
		Permissions:    string(data),
		IsSystemRole:   v.IsSystemRole,
		IsDefaultRole:  v.IsDefaultRole,
		ExpiresAt:      utcPtr(v.ExpiresAt),
		CreatedBy:      v.CreatedBy,
		CreatedAt:      v.CreatedAt.UTC(),
		UpdatedAt:      v.UpdatedAt.UTC(),
		Version:        v.Version,
	}, nil
}

func (p RoleViewPO) ToView() (*role.View, error) {
	var perms []string
	if p.Permissions != "" {
		if err := json.Unmarshal([]byte(p.Permissions), &perms); err != nil {
			return nil, err
		}
	}
	return &role.View{
		ID:             p.ID,
		TenantID:       p.TenantID,
		OrganizationID: p.OrganizationID,
		DepartmentID:   p.DepartmentID,
		Name:           p.Name,
		Description:    p.Description,
		Type:           role.Type(p.Type),
		Status:         role.Status(p.Status),
		Permissions:    perms,
		IsSystemRole:   p.IsSystemRole,
		IsDefaultRole:  p.IsDefaultRole,
		ExpiresAt:      p.ExpiresAt,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
		Version:        p.Version,
	}, nil
}

// UserViewPO is the user read model row. It has no password column.
// Email is indexed but not unique: a deleted user releases its address.
type UserViewPO struct {
	ID                 string `gorm:"primaryKey;size:36"`
	TenantID           string `gorm:"size:36;not null;index:idx_user_views_tenant_email,priority:1"`
	PlatformID         string `gorm:"size:36"`
	Email              string `gorm:"size:254;not null;index:idx_user_views_tenant_email,priority:2"`
	FirstName          string `gorm:"size:50"`
	LastName           string `gorm:"size:50"`
	PhoneNumber        string `gorm:"size:20"`
	Avatar             string `gorm:"size:500"`
	Language           string `gorm:"size:10"`
	Timezone           string `gorm:"size:64"`
	Theme              string `gorm:"size:10"`
	EmailNotifications bool
	Status             string `gorm:"size:20;not null;index"`
	CreatedBy          string `gorm:"size:36"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int `gorm:"not null"`
}

func (UserViewPO) TableName() string {
	return "user_views"
}

func FromUserView(v *user.View) UserViewPO {
	return UserViewPO{
		ID:                 v.ID,
		TenantID:           v.TenantID,
		PlatformID:         v.PlatformID,
		Email:              v.Email,
		FirstName:          v.FirstName,
		LastName:           v.LastName,
		PhoneNumber:        v.PhoneNumber,
		Avatar:             v.Avatar,
		Language:           v.Language,
		Timezone:           v.Timezone,
		Theme:              v.Theme,
		EmailNotifications: v.EmailNotifications,
		Status:             string(v.Status),
		CreatedBy:          v.CreatedBy,
		CreatedAt:          v.CreatedAt.UTC(),
		UpdatedAt:          v.UpdatedAt.UTC(),
		Version:            v.Version,
	}
}

func (p UserViewPO) ToView() *user.View {
	return &user.View{
		ID:                 p.ID,
		TenantID:           p.TenantID,
		PlatformID:         p.PlatformID,
		Email:              p.Email,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		PhoneNumber:        p.PhoneNumber,
		Avatar:             p.Avatar,
		Language:           p.Language,
		Timezone:           p.Timezone,
		Theme:              p.Theme,
		EmailNotifications: p.EmailNotifications,
		Status:             user.Status(p.Status),
		CreatedBy:          p.CreatedBy,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
		Version:            p.Version,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
