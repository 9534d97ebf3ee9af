package utils

// ToStringSlice keeps only the string elements of a loosely typed JSON array.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// StringField returns m[key] when it is a non-empty string, otherwise def.
func StringField(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

// BoolField returns m[key] when it is a bool, otherwise def.
func BoolField(m map[string]any, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}
