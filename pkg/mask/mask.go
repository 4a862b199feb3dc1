// Package mask provides incremental input masks for entity codes and contact
// fields. Each function is safe to apply on every keystroke: feeding it a
// partially typed value returns the longest valid prefix, and feeding it an
// already-masked value returns the value unchanged.
package mask

import (
	"regexp"
	"strings"
)

// Code shapes per entity.
const (
	StudentCodeLetters    = 4
	StudentCodeDigits     = 6
	InstructorCodeLetters = 4
	InstructorCodeDigits  = 6
	CourseCodeLetters     = 3
	CourseCodeDigits      = 3
)

var (
	studentCodeRe    = regexp.MustCompile(`^[A-Z]{4}[0-9]{6}$`)
	instructorCodeRe = regexp.MustCompile(`^[A-Z]{4}[0-9]{6}$`)
	courseCodeRe     = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	phoneRe          = regexp.MustCompile(`^[0-9]{4}-[0-9]{4}$`)
	nationalIDRe     = regexp.MustCompile(`^[0-9]{8}-[0-9]{1}$`)
)

// Code normalises raw input into an entity code of the given shape: strip
// non-alphanumerics, uppercase, then cap the letter and digit runs
// independently and concatenate letters-first. Extra characters of either
// class are dropped rather than rejected.
func Code(raw string, letters, digits int) string {
	var letterRun, digitRun strings.Builder
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r >= 'A' && r <= 'Z':
			if letterRun.Len() < letters {
				letterRun.WriteRune(r)
			}
		case r >= '0' && r <= '9':
			if digitRun.Len() < digits {
				digitRun.WriteRune(r)
			}
		}
	}
	return letterRun.String() + digitRun.String()
}

// StudentCode masks input to the 4-letter 6-digit student shape.
func StudentCode(raw string) string {
	return Code(raw, StudentCodeLetters, StudentCodeDigits)
}

// InstructorCode masks input to the 4-letter 6-digit instructor shape.
func InstructorCode(raw string) string {
	return Code(raw, InstructorCodeLetters, InstructorCodeDigits)
}

// CourseCode masks input to the 3-letter 3-digit course shape.
func CourseCode(raw string) string {
	return Code(raw, CourseCodeLetters, CourseCodeDigits)
}

// Phone masks input to DDDD-DDDD, inserting the dash once the fifth digit
// arrives.
func Phone(raw string) string {
	digits := keepDigits(raw, 8)
	if len(digits) <= 4 {
		return digits
	}
	return digits[:4] + "-" + digits[4:]
}

// NationalID masks the 9-digit national identity document to DDDDDDDD-D.
func NationalID(raw string) string {
	digits := keepDigits(raw, 9)
	if len(digits) <= 8 {
		return digits
	}
	return digits[:8] + "-" + digits[8:]
}

// ValidStudentCode reports whether the value is a complete student code.
func ValidStudentCode(v string) bool { return studentCodeRe.MatchString(v) }

// ValidInstructorCode reports whether the value is a complete instructor code.
func ValidInstructorCode(v string) bool { return instructorCodeRe.MatchString(v) }

// ValidCourseCode reports whether the value is a complete course code.
func ValidCourseCode(v string) bool { return courseCodeRe.MatchString(v) }

// ValidPhone reports whether the value is a complete phone number.
func ValidPhone(v string) bool { return phoneRe.MatchString(v) }

// ValidNationalID reports whether the value is a complete national ID.
func ValidNationalID(v string) bool { return nationalIDRe.MatchString(v) }

func keepDigits(raw string, max int) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' && b.Len() < max {
			b.WriteRune(r)
		}
	}
	return b.String()
}
