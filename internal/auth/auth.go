// Package auth resolves a handshake credential into an Identity, per spec
// §6's handshake rules. Adapted from the teacher's AuthService, collapsed
// to a single claim type since the broker recognizes one kind of
// authenticated principal.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"matchbroker/internal/model"
)

// ErrInvalidToken is returned when a dotted-looking credential fails
// verification.
var ErrInvalidToken = errors.New("invalid or expired token")

const adminUserID = "server-admin"

// Service verifies signed tokens and resolves handshake credentials into
// an Identity.
type Service struct {
	jwtSecret []byte
	serverKey string
}

// NewService builds a Service with the given JWT signing secret and admin
// server key (MATCHMAKING_SERVER_KEY).
func NewService(jwtSecret, serverKey string) *Service {
	return &Service{jwtSecret: []byte(jwtSecret), serverKey: serverKey}
}

// IssueToken signs a UserClaims token for uid, valid for 24 hours.
func (s *Service) IssueToken(uid string) (string, error) {
	claims := &model.UserClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Service) verify(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// looksLikeToken reports whether credential has the three dot-separated
// segments of a JWT, per spec §6's "credential looks like a dotted token"
// rule.
func looksLikeToken(credential string) bool {
	return strings.Count(credential, ".") == 2
}

// Resolve derives an Identity from a handshake's userId/token and optional
// serverKey, per spec §6: an admin handshake is userId=server-admin with
// the matching serverKey; a dotted-looking credential is verified as a
// signed token; anything else is treated as a raw guest uid.
func (s *Service) Resolve(credential, serverKey string) (model.Identity, error) {
	if credential == adminUserID && s.serverKey != "" && serverKey == s.serverKey {
		return model.Identity{UID: adminUserID, IsAdmin: true}, nil
	}

	if looksLikeToken(credential) {
		claims, err := s.verify(credential)
		if err != nil {
			return model.Identity{}, err
		}
		return model.Identity{UID: claims.UID, IsGuest: model.IsGuestUID(claims.UID)}, nil
	}

	return model.Identity{UID: credential, IsGuest: model.IsGuestUID(credential)}, nil
}
