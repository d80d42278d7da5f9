// Package analysis inspects motion traces for oscillation.
//
//   - [PowerSpectrum]: one-sided power spectrum of an evenly sampled signal
//   - [DominantFrequency]: strongest non-DC component
//   - [DetectOscillation]: zero crossings and ringing frequency of an error trace
//   - [ErrorPortrait]: error versus error rate, for ASCII phase plots
//
// A controller that rings around its target shows up as repeated zero
// crossings with a clear spectral peak:
//
//	rep := analysis.DetectOscillation(analysis.LateralErrors(res.Trace), period)
//	if rep.Oscillating {
//	    // lower Kp or raise Kd
//	}
package analysis
