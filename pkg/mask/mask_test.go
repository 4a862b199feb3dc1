package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentCodeMasksLive(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"us s s0 37323a", "USSS037323"},
		{"abcd123456", "ABCD123456"},
		{"ab", "AB"},
		{"abcde", "ABCD"},
		{"abcde1", "ABCD1"},
		{"ab-cd.12", "ABCD12"},
		{"1234abcd", "ABCD1234"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StudentCode(tc.in), "input %q", tc.in)
	}
}

func TestStudentCodeIdempotent(t *testing.T) {
	masked := StudentCode("us s s0 37323a")
	assert.Equal(t, masked, StudentCode(masked))
}

func TestCourseCodeShape(t *testing.T) {
	assert.Equal(t, "MAT101", CourseCode("mat101"))
	assert.Equal(t, "MAT101", CourseCode("mathematics101202"))
	assert.True(t, ValidCourseCode("MAT101"))
	assert.False(t, ValidCourseCode("MATH101"))
	assert.False(t, ValidCourseCode("MAT1"))
}

func TestPhoneInsertsDash(t *testing.T) {
	assert.Equal(t, "1234", Phone("1234"))
	assert.Equal(t, "1234-5", Phone("12345"))
	assert.Equal(t, "1234-5678", Phone("12345678"))
	assert.Equal(t, "1234-5678", Phone("(1234) 5678-999"))
	assert.True(t, ValidPhone("1234-5678"))
	assert.False(t, ValidPhone("12345678"))
}

func TestNationalIDInsertsDash(t *testing.T) {
	assert.Equal(t, "12345678", NationalID("12345678"))
	assert.Equal(t, "12345678-9", NationalID("123456789"))
	assert.Equal(t, "12345678-9", NationalID("12345678-9"))
	assert.True(t, ValidNationalID("12345678-9"))
	assert.False(t, ValidNationalID("1234567-89"))
}
