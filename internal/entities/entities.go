// Package entities contains main entities of service.
package entities

import (
	"time"

	"github.com/agora-net/agora/internal/ident"
)

// User ...
type User struct {
	ID            ident.ID
	FirstName     string
	LastName      string
	Username      string
	Email         string
	PasswordHash  string
	AvatarURL     string
	BackgroundURL string
	CreatedAt     time.Time
}

