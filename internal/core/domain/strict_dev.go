//go:build herbtrace_dev

package domain

const strictTransitions = true
