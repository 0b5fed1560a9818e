package core

import "time"

type Employee struct {
	ID         string    `json:"id"`
	Name       string    `json:"name" validate:"required,max=200"`
	Department string    `json:"department" validate:"max=120"`
	Position   string    `json:"position" validate:"max=120"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
