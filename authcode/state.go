package authcode

import "github.com/google/uuid"

// NewState returns a random value for the state parameter of an authorization request.
func NewState() string {
	return uuid.NewString()
}
