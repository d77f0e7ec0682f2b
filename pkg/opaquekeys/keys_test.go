package opaquekeys_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/opaquekeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCourseKey(t *testing.T) {
	t.Parallel()

	tcases := []struct {
		in       string
		org      string
		course   string
		run      string
		legacy   bool
		expected string
		err      string
	}{
		{in: "course-v1:edX+DemoX+Demo_Course", org: "edX", course: "DemoX", run: "Demo_Course", expected: "course-v1:edX+DemoX+Demo_Course"},
		{in: " course-v1:MITx+6.002x+2024_T1 ", org: "MITx", course: "6.002x", run: "2024_T1", expected: "course-v1:MITx+6.002x+2024_T1"},
		{in: "edX/DemoX/Demo_Course", org: "edX", course: "DemoX", run: "Demo_Course", legacy: true, expected: "edX/DemoX/Demo_Course"},
		{in: "not-a-course-id", err: `malformed course key "not-a-course-id": invalid key`},
		{in: "", err: `malformed course key "": invalid key`},
		{in: "course-v1:edX+DemoX", err: `malformed course key "course-v1:edX+DemoX": invalid key`},
		{in: "course-v1:edX+Demo X+run", err: `malformed course key "course-v1:edX+Demo X+run": invalid key`},
	}

	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			k, err := opaquekeys.ParseCourseKey(tc.in)
			if tc.err != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tc.err)
				assert.True(t, errors.Is(err, opaquekeys.ErrInvalidKey))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.org, k.Org)
			assert.Equal(t, tc.course, k.Course)
			assert.Equal(t, tc.run, k.Run)
			assert.Equal(t, tc.legacy, k.Deprecated)
			assert.Equal(t, tc.expected, k.String())
		})
	}
}

func TestParseUsageKey(t *testing.T) {
	t.Parallel()

	k, err := opaquekeys.ParseUsageKey("block-v1:edX+DemoX+Demo_Course+type@vertical+block@unit1")
	require.NoError(t, err)
	assert.Equal(t, "vertical", k.BlockType)
	assert.Equal(t, "unit1", k.BlockID)
	assert.Equal(t, "course-v1:edX+DemoX+Demo_Course", k.Course.String())
	assert.Equal(t, "block-v1:edX+DemoX+Demo_Course+type@vertical+block@unit1", k.String())

	_, err = opaquekeys.ParseUsageKey("unit-123")
	assert.EqualError(t, err, `malformed usage key "unit-123": invalid key`)

	ck, err := opaquekeys.ParseCourseKey("course-v1:edX+DemoX+Demo_Course")
	require.NoError(t, err)
	uk, err := ck.MakeUsageKey("html", "intro")
	require.NoError(t, err)
	assert.Equal(t, "block-v1:edX+DemoX+Demo_Course+type@html+block@intro", uk.String())

	_, err = ck.MakeUsageKey("html", "bad id")
	assert.Error(t, err)
}
