package order

import (
	"strings"

	"github.com/google/uuid"
)

const maxNumberAttempts = 3

// NewOrderNumber returns a random order token such as ORD-3F9A1C07B2D4.
func NewOrderNumber() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:12])
}
