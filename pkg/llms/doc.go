// Package llms provides the boundary between the processor and LLM providers.
//
// A provider implements Backend and translates a Request into its own wire format.
// Responses are normalized into output items with typed content parts,
// so callers extract text the same way for every provider.
//
// Each subpackage includes a provider-specific Backend implementation.
package llms
