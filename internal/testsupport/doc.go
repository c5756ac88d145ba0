// Package testsupport provides shared constructors for tests: temp-dir
// configurations, database handles with registered cleanup, and scripted
// recognition engines for driving the recorder deterministically.
package testsupport
