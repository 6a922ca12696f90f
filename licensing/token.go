package licensing

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateToken builds a new license key: a random component plus a
// millisecond timestamp in base36. Collision resistance in practice; the
// unique index on license.token is the final arbiter and callers retry on a
// duplicate-key write.
func GenerateToken() string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return "VS-" + random + "-" + strconv.FormatInt(time.Now().UnixMilli(), 36)
}
