package utils

// Filter returns the elements of slice for which keep is true, in order.
// The result is nil when nothing matches.
func Filter[T any](slice []T, keep func(T) bool) []T {
	var result []T
	for _, item := range slice {
		if keep(item) {
			result = append(result, item)
		}
	}
	return result
}

// Map applies fn to every element of slice
func Map[T, U any](slice []T, fn func(T) U) []U {
	result := make([]U, len(slice))
	for i, item := range slice {
		result[i] = fn(item)
	}
	return result
}
