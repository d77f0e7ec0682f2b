// Package opaquekeys parses Open edX course and usage keys.
package opaquekeys

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// CoursePrefix is the namespace of course keys
	CoursePrefix = "course-v1"
	// BlockPrefix is the namespace of usage keys
	BlockPrefix = "block-v1"
)

// ErrInvalidKey is returned when a key cannot be parsed
var ErrInvalidKey = errors.New("invalid key")

var (
	idPart    = `[\w\-~.:]+`
	courseV1  = regexp.MustCompile(`^course-v1:(` + idPart + `)\+(` + idPart + `)\+(` + idPart + `)$`)
	legacy    = regexp.MustCompile(`^(` + idPart + `)/(` + idPart + `)/(` + idPart + `)$`)
	blockV1   = regexp.MustCompile(`^block-v1:(` + idPart + `)\+(` + idPart + `)\+(` + idPart + `)\+type@(` + idPart + `)\+block@(` + idPart + `)$`)
	blockPart = regexp.MustCompile(`^` + idPart + `$`)
)

// CourseKey identifies a course run
type CourseKey struct {
	Org    string
	Course string
	Run    string
	// Deprecated is true for the legacy ORG/COURSE/RUN form
	Deprecated bool
}

// ParseCourseKey parses `course-v1:ORG+COURSE+RUN` or the legacy `ORG/COURSE/RUN` form
func ParseCourseKey(s string) (*CourseKey, error) {
	s = strings.TrimSpace(s)
	if m := courseV1.FindStringSubmatch(s); m != nil {
		return &CourseKey{Org: m[1], Course: m[2], Run: m[3]}, nil
	}
	if m := legacy.FindStringSubmatch(s); m != nil {
		return &CourseKey{Org: m[1], Course: m[2], Run: m[3], Deprecated: true}, nil
	}
	return nil, errors.WithMessagef(ErrInvalidKey, "malformed course key %q", s)
}

// String returns the canonical form of the key
func (k CourseKey) String() string {
	if k.Deprecated {
		return k.Org + "/" + k.Course + "/" + k.Run
	}
	return CoursePrefix + ":" + k.Org + "+" + k.Course + "+" + k.Run
}

// MakeUsageKey returns a usage key for a block in this course
func (k CourseKey) MakeUsageKey(blockType, blockID string) (*UsageKey, error) {
	if !blockPart.MatchString(blockType) || !blockPart.MatchString(blockID) {
		return nil, errors.WithMessagef(ErrInvalidKey, "malformed block %q of type %q", blockID, blockType)
	}
	return &UsageKey{Course: k, BlockType: blockType, BlockID: blockID}, nil
}

// UsageKey identifies a block inside a course
type UsageKey struct {
	Course    CourseKey
	BlockType string
	BlockID   string
}

// ParseUsageKey parses `block-v1:ORG+COURSE+RUN+type@TYPE+block@ID`
func ParseUsageKey(s string) (*UsageKey, error) {
	s = strings.TrimSpace(s)
	m := blockV1.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.WithMessagef(ErrInvalidKey, "malformed usage key %q", s)
	}
	return &UsageKey{
		Course:    CourseKey{Org: m[1], Course: m[2], Run: m[3]},
		BlockType: m[4],
		BlockID:   m[5],
	}, nil
}

// String returns the canonical form of the key
func (k UsageKey) String() string {
	return BlockPrefix + ":" + k.Course.Org + "+" + k.Course.Course + "+" + k.Course.Run +
		"+type@" + k.BlockType + "+block@" + k.BlockID
}
