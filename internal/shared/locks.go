package shared

import "fmt"

// SequenceLockKey names the advisory lock serialising key allocation for a prefix.
func SequenceLockKey(prefix string) string {
	return fmt.Sprintf("orders:sequence:%s", prefix)
}
