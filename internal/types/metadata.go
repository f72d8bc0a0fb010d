package types

// Metadata holds free-form string key-value pairs attached to orders and calls
type Metadata map[string]string

// Clone returns a copy that can be mutated without touching the receiver
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
