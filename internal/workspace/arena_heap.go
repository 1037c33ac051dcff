//go:build !linux && !darwin

package workspace

func mapRegion(floats int) ([]float32, bool, func() error, error) {
	return make([]float32, floats), false, nil, nil
}
