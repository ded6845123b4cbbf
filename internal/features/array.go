// Package features builds the numeric feature record handed to the structure
// prediction model: sequence features, MSA features, and their merge with
// template features.
package features

import (
	"fmt"
	"sort"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
)

// DType is the element type of an Array.
type DType string

const (
	// Int32 arrays hold their payload in Array.Int32
	Int32 DType = "int32"

	// Float32 arrays hold their payload in Array.Float32
	Float32 DType = "float32"

	// Object arrays hold byte strings in Array.Object
	Object DType = "object"
)

// Array is a dense, row-major n-dimensional array. Exactly one of the
// payload slices, the one matching DType, is set.
type Array struct {
	// DType of the elements
	DType DType `json:"dtype"`

	// Shape is the size of each dimension
	Shape []int `json:"shape"`

	// Int32 payload
	Int32 []int32 `json:"int32,omitempty"`

	// Float32 payload
	Float32 []float32 `json:"float32,omitempty"`

	// Object payload, one string per element
	Object []string `json:"object,omitempty"`
}

// Dict is a feature record: feature name to array.
type Dict map[string]*Array

// NewInt32 creates a zeroed int32 array of the given shape.
func NewInt32(shape ...int) *Array {
	return &Array{DType: Int32, Shape: shape, Int32: make([]int32, size(shape))}
}

// NewFloat32 creates a zeroed float32 array of the given shape.
func NewFloat32(shape ...int) *Array {
	return &Array{DType: Float32, Shape: shape, Float32: make([]float32, size(shape))}
}

// NewObject creates a one-dimensional object array from strings.
func NewObject(values ...string) *Array {
	if values == nil {
		values = []string{}
	}
	return &Array{DType: Object, Shape: []int{len(values)}, Object: values}
}

// Size is the number of elements.
func (a *Array) Size() int {
	return size(a.Shape)
}

// Dim returns the size of dimension i, 0 if the array has fewer dimensions.
func (a *Array) Dim(i int) int {
	if i >= len(a.Shape) {
		return 0
	}
	return a.Shape[i]
}

// ShapeString formats the shape like "(12, 21)".
func (a *Array) ShapeString() string {
	s := "("
	for i, d := range a.Shape {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint(d)
	}
	return s + ")"
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Keys returns the feature names in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge combines feature records into a new one. Feature names must be
// unique across all inputs: a name present in two records is an
// AssemblyConflictError.
func Merge(dicts ...Dict) (Dict, error) {
	merged := make(Dict)
	for _, d := range dicts {
		for _, k := range d.Keys() {
			if _, ok := merged[k]; ok {
				return nil, perrors.AssemblyConflict("merge features", "feature %q produced twice", k)
			}
			merged[k] = d[k]
		}
	}
	return merged, nil
}
