package tensor

// ToFloat32Slice narrows float64 values for compact storage.
func ToFloat32Slice(data []float64) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	return out
}

// FromFloat32Slice widens stored float32 values back to float64.
func FromFloat32Slice(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}
