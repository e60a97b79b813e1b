package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber returns a human-readable order number such as
// "VB-20261017-3F9A2C7D". The suffix comes from a random UUID.
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("VB-%s-%s", now.Format("20060102"), suffix)
}
