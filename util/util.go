package util

import (
	"os"

	"golang.org/x/exp/constraints"
)

func OpenFileOrPanic(path string) *os.File {
	f, err := os.Open(path)
	if err != nil {
		panic("Couldn't read file: " + err.Error())
	}
	return f
}

func Min[A constraints.Ordered](num1 A, num2 A) A {
	if num1 > num2 {
		return num2
	}
	return num1
}

func Max[A constraints.Ordered](num1 A, num2 A) A {
	if num1 < num2 {
		return num2
	}
	return num1
}

func Clamp[A constraints.Ordered](val A, lo A, hi A) A {
	return Max(lo, Min(val, hi))
}

// InRange reports whether lo <= val <= hi.
func InRange[A constraints.Ordered](val A, lo A, hi A) bool {
	return val >= lo && val <= hi
}
