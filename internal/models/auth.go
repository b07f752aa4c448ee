package models

import "time"

// LoginRequest holds credentials for authenticating any account class.
type LoginRequest struct {
	AccountType AccountType `json:"account_type" validate:"required,oneof=student alumni staff"`
	Identifier  string      `json:"identifier" validate:"required,alphanum"`
	Password    string      `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the authenticated account.
type LoginResponse struct {
	AccessToken       string    `json:"access_token"`
	ExpiresIn         int64     `json:"expires_in"`
	IssuedAt          time.Time `json:"issued_at"`
	Account           Account   `json:"account"`
	DeletionCancelled bool      `json:"deletion_cancelled"`
}
