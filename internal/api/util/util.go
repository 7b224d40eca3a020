package util

// ApplyConversion maps a slice of models to a slice of DTOs using the
// converter provided. The returned slice is never nil, so callers can
// marshal it directly without a JSON 'null' appearing for empty lists.
func ApplyConversion[T any, K any](models []T, converter func(T) K) []K {
	dtos := make([]K, 0, len(models))
	for _, v := range models {
		dtos = append(dtos, converter(v))
	}

	return dtos
}
