package rada

// SanitizePayload replaces every ASCII control byte (0x00-0x1F) with a space.
// The upstream dataset carries raw control characters inside string values.
// raw is modified in place and returned.
func SanitizePayload(raw []byte) []byte {
	for i, b := range raw {
		if b <= 0x1F {
			raw[i] = ' '
		}
	}
	return raw
}
