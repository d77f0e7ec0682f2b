// Package tools adapts typed Go functions into tools served by the mcp package.
// Input types describe arguments with json, jsonschema and validate tags.
package tools
