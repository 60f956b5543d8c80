package models

import "time"

// Avatar is the character a player picked at signup.
type Avatar string

const (
	AvatarWitch  Avatar = "witch"
	AvatarArcher Avatar = "archer"
	AvatarBoxer  Avatar = "boxer"
	AvatarNinja  Avatar = "ninja"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Avatar       Avatar    `db:"avatar" json:"avatar"`
	CreatedOn    time.Time `db:"created_on" json:"createdOn"`
	UpdatedOn    time.Time `db:"updated_on" json:"updatedOn"`
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar Avatar `json:"avatar"`
}

// Profile strips private fields from the user.
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Email: u.Email, Name: u.Name, Avatar: u.Avatar}
}

// Identity is what a successful credential check yields.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Avatar Avatar `json:"avatar"`
}

// UserUpdate carries the optional profile fields to change.
type UserUpdate struct {
	Name   *string
	Email  *string
	Avatar *Avatar
}

// Empty reports whether no field is set.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Avatar == nil
}
