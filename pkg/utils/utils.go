package utils

import (
	"os"

	jsoniter "github.com/json-iterator/go"
)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

func IsFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func IfOr[T any](a bool, x, y T) T {
	if a {
		return x
	}
	return y
}

// Clone returns a copy of s that shares no backing array with it. A nil
// slice clones to an empty one.
func Clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
