package dto

type AdminUserUpdateRequest struct {
	Role      *string `json:"role,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
	IsBlocked *bool   `json:"isBlocked,omitempty"`
}
