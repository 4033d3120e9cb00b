// backend/pkg/utils/slot.go
package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const slotIDLength = 12

// GenerateSlotID generates an opaque identifier for one recommendation slot.
// Slot IDs are unique per issuance, never derived from the song they carry.
func GenerateSlotID() string {
	return GenerateRandomID(slotIDLength)
}

// ValidateSlotID validates if a slot ID format is correct
func ValidateSlotID(slotID string) bool {
	if len(slotID) != slotIDLength {
		return false
	}

	// Check if it's a valid hex string
	_, err := hex.DecodeString(slotID)
	return err == nil
}

// GenerateRandomID generates a random ID
func GenerateRandomID(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)[:length]
}

// MD5Hash generates MD5 hash of input string
func MD5Hash(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}
