package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are the JWT claims carried by a signed auth token, adapted
// from the teacher's HostClaims/PlayerClaims split into a single claim set
// since the broker only recognizes one kind of authenticated principal.
type UserClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Identity is the resolved result of a handshake: who is connecting, and
// with what privilege.
type Identity struct {
	UID     string
	IsGuest bool
	IsAdmin bool
}
