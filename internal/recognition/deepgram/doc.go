// Package deepgram streams audio to the Deepgram live-listen websocket
// endpoint and translates provider responses into recognition events.
package deepgram
