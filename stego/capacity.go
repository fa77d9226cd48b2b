package stego

// HeaderSamples is the number of samples the header occupies for a filename
// of nameLen bytes.
func HeaderSamples(nameLen int) int {
	return samplesFor((HeaderFixedSize+nameLen)*8, HeaderDepth)
}

// Capacity is the largest secret, in bytes, a cover of sampleCount samples
// holds at bitDepth LSBs with no embedded filename.
func Capacity(sampleCount, bitDepth int) int {
	return CapacityFor(sampleCount, bitDepth, "")
}

// CapacityFor is Capacity with the filename overhead taken into account.
func CapacityFor(sampleCount, bitDepth int, filename string) int {
	if bitDepth < 1 || bitDepth > 4 {
		return 0
	}
	usable := sampleCount - HeaderSamples(len(filename))
	if usable <= 0 {
		return 0
	}
	return usable * bitDepth / 8
}
