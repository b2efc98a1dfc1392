package contracts

// Domain events published by the permission backend. The API layer decides
// when to publish these; this package only defines their shapes.

// UserCreatedEvent is published when a user is added to a tenant.
type UserCreatedEvent struct {
	BaseEvent
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// NewUserCreatedEvent creates a UserCreatedEvent for the given tenant and user.
func NewUserCreatedEvent(tenantID, userID, email string) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseEvent: BaseEvent{
			BaseMessage: NewBaseMessage("UserCreatedEvent"),
			TenantID:    tenantID,
		},
		UserID: userID,
		Email:  email,
	}
}

// UserDeletedEvent is published when a user is removed from a tenant.
type UserDeletedEvent struct {
	BaseEvent
	UserID string `json:"userId"`
}

// RoleAssignedEvent is published when a role is granted to a user.
type RoleAssignedEvent struct {
	BaseEvent
	UserID   string `json:"userId"`
	RoleID   string `json:"roleId"`
	RoleName string `json:"roleName"`
}

// NewRoleAssignedEvent creates a RoleAssignedEvent.
func NewRoleAssignedEvent(tenantID, userID, roleID, roleName string) *RoleAssignedEvent {
	return &RoleAssignedEvent{
		BaseEvent: BaseEvent{
			BaseMessage: NewBaseMessage("RoleAssignedEvent"),
			TenantID:    tenantID,
		},
		UserID:   userID,
		RoleID:   roleID,
		RoleName: roleName,
	}
}

// RoleRevokedEvent is published when a role is removed from a user.
type RoleRevokedEvent struct {
	BaseEvent
	UserID string `json:"userId"`
	RoleID string `json:"roleId"`
}

// PermissionGrantedEvent is published when a permission is attached to a role.
type PermissionGrantedEvent struct {
	BaseEvent
	RoleID       string `json:"roleId"`
	PermissionID string `json:"permissionId"`
	Resource     string `json:"resource"`
	Action       string `json:"action"`
}

// TenantProvisionedEvent is published when a new tenant finishes onboarding.
// Tenant lifecycle events are published to a FIFO queue so downstream
// projections see them in order.
type TenantProvisionedEvent struct {
	BaseEvent
	Name string `json:"name"`
	Plan string `json:"plan"`
}

// NewTenantProvisionedEvent creates a TenantProvisionedEvent.
func NewTenantProvisionedEvent(tenantID, name, plan string) *TenantProvisionedEvent {
	return &TenantProvisionedEvent{
		BaseEvent: BaseEvent{
			BaseMessage: NewBaseMessage("TenantProvisionedEvent"),
			TenantID:    tenantID,
		},
		Name: name,
		Plan: plan,
	}
}
