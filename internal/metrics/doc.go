// Package metrics provides motion.Metric implementations that summarise a
// command's cycles: control effort, tracking error, overshoot and output
// saturation.
package metrics
