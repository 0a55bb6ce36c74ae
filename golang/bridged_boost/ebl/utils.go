package ebl

import (
	"log"

	"gonum.org/v1/gonum/mat"
)

//HandleError stops the program on an unexpected I/O error.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//Height returns the number of rows of a matrix.
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//Width returns the number of columns of a matrix.
func Width(m mat.Matrix) int {
	_, w := m.Dims()
	return w
}
