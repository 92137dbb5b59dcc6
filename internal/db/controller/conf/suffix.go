package conf

import (
	"fmt"
	"regexp"
	"strconv"
)

// suffixPattern matches a trailing base-10 instance index, e.g. "_1".
var suffixPattern = regexp.MustCompile(`_(\d+)$`)

// parseSuffix splits a submitted key into its base setting id and instance
// suffix. Keys without a trailing index map to suffix 0.
func parseSuffix(key string) (string, uint) {
	match := suffixPattern.FindStringSubmatch(key)
	if match == nil {
		return key, 0
	}

	suffix, err := strconv.ParseUint(match[1], 10, 32)
	if err != nil {
		return key, 0
	}

	return key[:len(key)-len(match[0])], uint(suffix)
}

// suffixedKey renders the storage key of a setting instance. Suffix 0 is the
// unsuffixed base key, the string encoding only exists at this boundary.
func suffixedKey(settingID string, suffix uint) string {
	if suffix == 0 {
		return settingID
	}

	return fmt.Sprintf("%s_%d", settingID, suffix)
}
