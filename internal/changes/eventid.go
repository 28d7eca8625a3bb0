package changes

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ComputeEventID returns the content hash identifying a change of field on
// recordID from oldValue to newValue. It is stable across runs and is the
// ledger's idempotence key.
func ComputeEventID(recordID, field, oldValue, newValue string) string {
	key := strings.Join([]string{
		foldKey(recordID),
		foldKey(field),
		foldKey(oldValue),
		foldKey(newValue),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
