package models

import "time"

// User is the identity record. PasswordHash and the single-use capability
// tokens never serialize into API responses.
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Nickname          string     `json:"nickname"`
	PasswordHash      string     `json:"-"`
	FirstName         *string    `json:"firstName,omitempty"`
	LastName          *string    `json:"lastName,omitempty"`
	AvatarURL         *string    `json:"avatarUrl,omitempty"`
	Verified          bool       `json:"verified"`
	VerificationToken *string    `json:"-"`
	ResetToken        *string    `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

func (u *User) GetAvatarURL() string {
	if u.AvatarURL != nil {
		return *u.AvatarURL
	}
	return ""
}
