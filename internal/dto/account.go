package dto

import "github.com/noah-isme/sma-feedback-api/internal/models"

// RegisterAccountRequest is the self-registration payload for students and alumni.
type RegisterAccountRequest struct {
	AccountType    models.AccountType `json:"accountType" validate:"required,oneof=student alumni"`
	ID             string             `json:"id" validate:"required,alphanum,max=64"`
	DisplayName    string             `json:"displayName" validate:"required,max=120"`
	Email          string             `json:"email" validate:"omitempty,email"`
	Course         string             `json:"course" validate:"omitempty,max=120"`
	GraduationYear int                `json:"graduationYear" validate:"omitempty,min=1900,max=2200"`
	Password       string             `json:"password" validate:"required,min=8,max=72"`
}

// CreateStaffRequest is the payload an Admin uses to create staff accounts.
type CreateStaffRequest struct {
	Username    string      `json:"username" validate:"required,alphanum,max=64"`
	DisplayName string      `json:"displayName" validate:"required,max=120"`
	Email       string      `json:"email" validate:"omitempty,email"`
	Role        models.Role `json:"role" validate:"required,oneof=Admin Moderator"`
	Password    string      `json:"password" validate:"required,min=8,max=72"`
}

// InfoChangeRequest stages a profile edit for staff approval.
type InfoChangeRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Course      *string `json:"course" validate:"omitempty,min=1,max=120"`
}

// Empty reports whether no field was supplied.
func (r InfoChangeRequest) Empty() bool {
	return r.DisplayName == nil && r.Email == nil && r.Course == nil
}

// ReasonRequest carries the mandatory free-text reason for rejections and deletions.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
