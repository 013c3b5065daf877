package common

import (
	"time"

	"github.com/oklog/ulid/v2"
)

var entropy = ulid.DefaultEntropy()

// NewULID returns a lexicographically sortable 26-char identifier.
func NewULID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
