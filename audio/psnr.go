// Package audio is made to handle decoding, encoding and psnr for audios
package audio

import (
	"errors"
	"fmt"
	"math"
)

// AcceptablePSNR is the threshold below which a stego file is reported as degraded.
const AcceptablePSNR = 30.0

// ErrLengthMismatch is returned when two buffers with different sample counts are compared.
var ErrLengthMismatch = errors.New("sample buffers differ in length")

// FidelityReport summarises the distortion introduced by embedding.
type FidelityReport struct {
	PSNRDb   float64
	Degraded bool
	Quality  string
}

// CalculatePSNR compares two sample buffers. Identical signals yield +Inf.
func CalculatePSNR(original, stego *SampleBuffer) (float64, error) {
	if original.Len() != stego.Len() {
		return 0, fmt.Errorf("%w: original=%d, stego=%d", ErrLengthMismatch, original.Len(), stego.Len())
	}

	if original.Len() == 0 {
		return math.Inf(1), nil
	}

	var mse float64
	for i, o := range original.Data {
		diff := float64(o) - float64(stego.Data[i])
		mse += diff * diff
	}
	mse /= float64(original.Len())

	// If MSE is 0, signals are identical
	if mse == 0 {
		return math.Inf(1), nil
	}

	maxValue := original.MaxValue()
	return 10 * math.Log10((maxValue*maxValue)/mse), nil
}

// Evaluate computes the PSNR and classifies it.
func Evaluate(original, stego *SampleBuffer) (FidelityReport, error) {
	psnr, err := CalculatePSNR(original, stego)
	if err != nil {
		return FidelityReport{}, err
	}
	return FidelityReport{
		PSNRDb:   psnr,
		Degraded: !ValidatePSNR(psnr, AcceptablePSNR),
		Quality:  QualityStatus(psnr),
	}, nil
}

func ValidatePSNR(psnr float64, threshold float64) bool {
	if math.IsInf(psnr, 1) {
		return true // Infinite PSNR is always good
	}
	return psnr >= threshold
}

func QualityStatus(psnr float64) string {
	if math.IsInf(psnr, 1) {
		return "Perfect Quality (Identical)"
	}

	switch {
	case psnr >= 50:
		return "Excellent Quality"
	case psnr >= 40:
		return "Very Good Quality"
	case psnr >= 30:
		return "Good Quality (Acceptable)"
	case psnr >= 20:
		return "Fair Quality"
	default:
		return "Poor Quality (Damaged)"
	}
}

// FormatPSNR renders a PSNR value for logs and CLI output.
func FormatPSNR(psnr float64) string {
	if math.IsInf(psnr, 1) {
		return "inf dB"
	}
	return fmt.Sprintf("%.2f dB", psnr)
}
