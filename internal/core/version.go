package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

var versionPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(.*)$`)
var tagPattern = regexp.MustCompile(`^[-._]?([A-Za-z]+)?[-._]?(\d+)?$`)

// Version is an exact semantic version: major, minor and micro numeric
// components plus an optional pre-release tag. Ranges are deliberately
// unsupported; conflicts between exact versions are arbitrated after
// resolution instead.
type Version struct {
	Major int
	Minor int
	Micro int
	Tag   string
}

// ParseVersion parses text of the form "major[.minor[.micro]][tag]".
func ParseVersion(text string) (Version, error) {
	match := versionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("the text %q cannot be parsed as a version identifier", text))
	}
	tag := match[4]
	if tag != "" && !tagPattern.MatchString(tag) {
		return Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("the text %q cannot be parsed as a version identifier", text))
	}
	version := Version{Tag: tag}
	version.Major, _ = strconv.Atoi(match[1])
	if match[2] != "" {
		version.Minor, _ = strconv.Atoi(match[2])
	}
	if match[3] != "" {
		version.Micro, _ = strconv.Atoi(match[3])
	}
	return version, nil
}

// ValidVersion reports whether text parses as an exact semantic version.
func ValidVersion(text string) bool {
	_, err := ParseVersion(text)
	return err == nil
}

// SameMajorMinor reports whether two versions differ at most in the
// micro component or tag. The default conflict policy treats such
// conflicts as recoverable.
func (v Version) SameMajorMinor(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

// Compare returns a negative number, zero or a positive number as v is
// ordered before, equal to or after other.
func (v Version) Compare(other Version) int {
	if diff := v.Major - other.Major; diff != 0 {
		return diff
	}
	if diff := v.Minor - other.Minor; diff != 0 {
		return diff
	}
	if diff := v.Micro - other.Micro; diff != 0 {
		return diff
	}
	if v.Tag == other.Tag {
		return 0
	}
	return compareTags(v.Tag, other.Tag)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.Major, v.Minor, v.Micro, v.Tag)
}

// compareTags orders the tag portion of two versions. An untagged
// version sorts after a tagged one at the same numeric triple (a
// release follows its pre-releases). Letter parts compare lexically and
// trailing numbers numerically.
func compareTags(tag1 string, tag2 string) int {
	if tag1 == tag2 {
		return 0
	}
	letters1, number1 := splitTag(tag1)
	letters2, number2 := splitTag(tag2)
	if letters1 != "" && letters2 == "" {
		return -1
	}
	if letters1 == "" && letters2 != "" {
		return 1
	}
	if letters1 != letters2 {
		if letters1 < letters2 {
			return -1
		}
		return 1
	}
	return number1 - number2
}

func splitTag(tag string) (string, int) {
	if tag == "" {
		tag = "-0"
	}
	match := tagPattern.FindStringSubmatch(tag)
	if match == nil {
		return tag, 0
	}
	number := 0
	if match[2] != "" {
		number, _ = strconv.Atoi(match[2])
	}
	return strings.ToLower(match[1]), number
}
