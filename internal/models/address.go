package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a user's delivery address.
type Address struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	MobileNo  string    `json:"mobileNo"`
	Address   string    `json:"address"`
	Pincode   string    `json:"pincode"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Country   string    `json:"country"`
	Landmark  string    `json:"landmark"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
