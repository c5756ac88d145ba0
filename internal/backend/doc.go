// Package backend syncs transcript sessions and quick notes to the
// dashboard persistence API and implements the pain-point and profiling
// artifact creators used during note conversion. The wire format keeps the
// dashboard's persisted Spanish field names.
package backend
