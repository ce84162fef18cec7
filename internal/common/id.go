package common

import (
	"github.com/google/uuid"
)

// NewSignalID generates a unique signal ID with the "sig_" prefix
// Format: sig_<uuid>
func NewSignalID() string {
	return "sig_" + uuid.New().String()
}
