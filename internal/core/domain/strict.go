//go:build !herbtrace_dev

package domain

// strictTransitions makes illegal record transitions panic. Development
// builds enable it with the herbtrace_dev build tag.
const strictTransitions = false
