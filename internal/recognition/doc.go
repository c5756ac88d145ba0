// Package recognition defines the boundary to the host's continuous
// speech-recognition capability.
//
// An Engine opens Streams that deliver started, partial, segment, error, and
// end events in strict temporal order on a single channel; exactly one end
// event terminates every stream. The package also provides the exclusive
// capture lock that models the host audio-input resource, and the error code
// vocabulary recognized by the recording session state machine. Provider
// implementations live in subpackages; probing and construction from
// configuration live in recognition/probe.
package recognition
