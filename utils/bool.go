package utils

// BoolToYesNo returns "Yes" for true and "No" for false.
func BoolToYesNo(value bool) string {
	if value {
		return "Yes"
	}

	return "No"
}
