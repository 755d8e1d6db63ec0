// Package video derives conference room names for appointments and builds
// provider join links.
package video

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const (
	roomPrefix = "mediconnect-"
	// roomTimeLayout renders yyyyMMddHHmm.
	roomTimeLayout = "200601021504"
	suffixLen      = 8
)

// DeriveRoomName returns mediconnect-<id>-<yyyyMMddHHmm> for the appointment,
// with the scheduled time converted to UTC and truncated to the minute. When
// secret is non-empty, "-" plus the first 8 hex characters of
// HMAC-SHA256(secret, base) is appended so room names cannot be guessed from
// the appointment id and time alone.
func DeriveRoomName(appointmentID int64, scheduledAt time.Time, secret string) string {
	base := roomPrefix + strconv.FormatInt(appointmentID, 10) + "-" + scheduledAt.UTC().Format(roomTimeLayout)
	if secret == "" {
		return base
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return base + "-" + hex.EncodeToString(mac.Sum(nil))[:suffixLen]
}
