// Package parse converts loosely-typed node and run outputs into concrete Go
// values. Graph traffic moves as any, and payloads produced by language
// models are often JSON-with-defects; [ParseStringAs] repairs and decodes
// such text into a target type, while [ValueAs] first tries direct
// conversions before falling back to a JSON round-trip.
package parse
