package dynafield

import "strings"

// ReservedPrefix marks attribute names used by the item envelope. Dictionary
// keys and entity attribute names may not start with it.
const ReservedPrefix = "_"

// ValidateKey reports whether key may be used as a dictionary key. Keys must be
// non-empty and must not start with [ReservedPrefix]. DynamoDB may still reject
// a key on write; such errors come back from the client unchanged.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, ReservedPrefix) {
		return keyError(ErrInvalidKey, key)
	}
	return nil
}

// validateAnyKey is ValidateKey for keys coming out of untyped mappings, such
// as the map[any]any values produced by YAML decoders.
func validateAnyKey(key any) (string, error) {
	s, ok := key.(string)
	if !ok {
		return "", keyError(ErrInvalidKey, key)
	}
	return s, ValidateKey(s)
}
