package models

import "math"

// SizeUnknown is reported when the runtime gives no usable size.
const SizeUnknown = "N/A"

const bytesPerGiB = 1024 * 1024 * 1024

// ModelDescriptor is an immutable snapshot of one model from the
// runtime's listing.
type ModelDescriptor struct {
	Name      string
	SizeBytes int64
}

// SizeGB returns the model size in gibibytes rounded to two decimals,
// or SizeUnknown for non-positive sizes.
func (m ModelDescriptor) SizeGB() any {
	if m.SizeBytes <= 0 {
		return SizeUnknown
	}
	return math.Round(float64(m.SizeBytes)/bytesPerGiB*100) / 100
}

// GenerationResult carries one completed model call.
type GenerationResult struct {
	Response       string
	ElapsedSeconds float64
}
