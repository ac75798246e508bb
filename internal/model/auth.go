package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Principal is the authenticated caller passed explicitly into every service call.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (p Principal) Is(role Role) bool { return p.Role == role }

// LoginRequest carries an email for doctors and patients, a username for admins.
type LoginRequest struct {
	Role       Role   `json:"role" binding:"required,oneof=admin doctor patient"`
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Principal   Principal `json:"principal"`
}
