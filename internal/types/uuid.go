package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex call_01HZX3Q4B5N6M7P8R9S0T1V2W3
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_CALL     = "call"
	UUID_PREFIX_ORDER    = "order"
	UUID_PREFIX_REFUND   = "refund"
	UUID_PREFIX_CUSTOMER = "cust"
)
