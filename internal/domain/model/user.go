package model

import "strings"

// UserID is issued by the identity provider and treated as opaque.
type UserID string

func (id UserID) String() string {
	return string(id)
}

func (id UserID) Empty() bool {
	return strings.TrimSpace(string(id)) == ""
}
