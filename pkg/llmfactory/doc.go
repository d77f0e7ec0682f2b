// Package llmfactory provides configuration of LLM providers and named profiles,
// and creates a Backend for the provider of a profile.
package llmfactory
