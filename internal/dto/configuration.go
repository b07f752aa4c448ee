package dto

// CreateConfigurationRequest adds a taxonomy item.
type CreateConfigurationRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"isActive"`
}

// UpdateConfigurationRequest edits a taxonomy item. Omitted fields are left unchanged.
type UpdateConfigurationRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"isActive"`
}

// RecoveryPinRequest sets or verifies the admin recovery PIN.
type RecoveryPinRequest struct {
	Pin string `json:"pin" validate:"required,numeric,min=4,max=12"`
}
