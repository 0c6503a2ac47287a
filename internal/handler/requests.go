package handler

import (
	"errors"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iliyamo/ecommerce-backend/internal/validation"
)

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

func (r *registerReq) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r registerReq) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Email, ozzo.Required, ozzo.Length(3, 254), is.Email),
		ozzo.Field(&r.Password, ozzo.Required, validation.Password),
		ozzo.Field(&r.Name, ozzo.Required, ozzo.Length(1, 100)),
		ozzo.Field(&r.Phone, ozzo.Required, validation.Phone),
	)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginReq) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Email, ozzo.Required, is.Email),
		ozzo.Field(&r.Password, ozzo.Required),
	)
}

type emailReq struct {
	Email string `json:"email"`
}

func (r emailReq) Validate() error {
	return ozzo.ValidateStruct(&r, ozzo.Field(&r.Email, ozzo.Required, is.Email))
}

type resetReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (r resetReq) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Email, ozzo.Required, is.Email),
		ozzo.Field(&r.Code, ozzo.Required),
		ozzo.Field(&r.NewPassword, ozzo.Required, validation.Password),
	)
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r changePasswordReq) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.CurrentPassword, ozzo.Required),
		ozzo.Field(&r.NewPassword, ozzo.Required, validation.Password),
	)
}

type updateUserReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (r *updateUserReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r updateUserReq) Validate() error {
	if r.Name == "" && r.Phone == "" {
		return ozzo.Errors{"name": errors.New("name or phone is required")}
	}
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Name, ozzo.Length(1, 100)),
		ozzo.Field(&r.Phone, validation.Phone),
	)
}

type roleReq struct {
	Role string `json:"role"`
}

func (r roleReq) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Role, ozzo.Required, ozzo.Length(1, 50), is.Alpha),
	)
}

type productReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
}

func (r *productReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r productReq) Validate() error {
	return ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Name, ozzo.Required, ozzo.Length(1, 200)),
		ozzo.Field(&r.Description, ozzo.Length(0, 2000)),
		ozzo.Field(&r.PriceCents, ozzo.Min(int64(0))),
		ozzo.Field(&r.Stock, ozzo.Min(0)),
	)
}
