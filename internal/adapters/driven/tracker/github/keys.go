package github

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

var keyPattern = regexp.MustCompile(`^(.+)-(M?)(\d+)$`)

// keyPrefix is the upper-cased repository name used in ticket keys.
func keyPrefix(repo string) string {
	return strings.ToUpper(repo)
}

func issueKey(prefix string, number int) string {
	return fmt.Sprintf("%s-%d", prefix, number)
}

func milestoneKey(prefix string, number int) string {
	return fmt.Sprintf("%s-M%d", prefix, number)
}

// parseKey splits a key into its number and whether it names a milestone.
// A bare number or "#12" is accepted as an issue of the configured repo.
func parseKey(prefix, key string) (number int, milestone bool, err error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "#")
	if n, err := strconv.Atoi(key); err == nil && n > 0 {
		return n, false, nil
	}

	m := keyPattern.FindStringSubmatch(strings.ToUpper(key))
	if m == nil || m[1] != prefix {
		return 0, false, fmt.Errorf("%w: %w: %q", domain.ErrInvalidInput, ErrInvalidKey, key)
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return 0, false, fmt.Errorf("%w: %w: %q", domain.ErrInvalidInput, ErrInvalidKey, key)
	}
	return n, m[2] == "M", nil
}
