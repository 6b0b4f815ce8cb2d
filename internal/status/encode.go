// internal/status/encode.go
package status

import "encoding/json"

// Encode serializes a Snapshot for the HTTP projection.
// No IO. No side effects.
func Encode(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
