// Package errors provides the structured error type shared by the SDK and
// the host runtime. Every error carries a processing phase and a kind so
// callers can match on error classes with errors.Is without string checks.
package errors
