// Command escucha captures live UX-research session audio into transcripts
// and manages the quick notes and artifact conversions that grow out of
// them.
package main
