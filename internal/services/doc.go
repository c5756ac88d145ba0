// Package services defines the shared error taxonomy and context annotation
// helpers used across the capture core.
//
// Sentinel errors classify failures for boundary handling: validation and
// conflict errors are recoverable without losing in-memory state, while
// unsupported-capability errors disable the recording affordance entirely.
// Components wrap their failures with Wrap so callers can match with
// errors.Is regardless of how deep the original error occurred.
package services
