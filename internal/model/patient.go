package model

import (
	"github.com/jwalitptl/hospital-api/pkg/clock"
)

type Patient struct {
	Base
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Phone        string     `db:"phone" json:"phone"`
	DateOfBirth  clock.Date `db:"dob" json:"dob"`
	Address      string     `db:"address" json:"address"`
}

type RegisterPatientRequest struct {
	FullName    string     `json:"full_name" binding:"required,max=64"`
	Email       string     `json:"email" binding:"required,email,max=254"`
	Password    string     `json:"password" binding:"required,min=8"`
	Phone       string     `json:"phone" binding:"required,max=15"`
	DateOfBirth clock.Date `json:"dob"`
	Address     string     `json:"address" binding:"required"`
}
