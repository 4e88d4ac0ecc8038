package core

import "fmt"

// DType is the element type a tensor is stored with on disk.
// In memory every array is float64.
type DType uint8

const (
	Float32 DType = iota
	Float64
)

// Size returns the byte size of one element.
func (d DType) Size() uintptr {
	switch d {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic(fmt.Sprintf("unknown dtype: %d", d))
	}
}

func (d DType) String() string {
	names := [...]string{"float32", "float64"}
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("dtype(%d)", d)
}

// ParseDType maps a dtype name back to its DType.
func ParseDType(name string) (DType, error) {
	switch name {
	case "float32", "f32":
		return Float32, nil
	case "float64", "f64", "":
		return Float64, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", name)
	}
}
