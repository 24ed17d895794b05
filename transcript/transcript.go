// Package transcript turns inbound bus payloads into display lines and hands
// them to the UI goroutine.
package transcript

import (
	"strings"
	"unicode/utf8"

	"hark/bus"
	"hark/log"
	"hark/loop"
)

// Placeholder stands in for an empty or undecodable fragment.
const Placeholder = "..."

// Sink is the append-only display surface. It is only called on the UI
// goroutine.
type Sink interface {
	AppendTranscript(text string)
}

// Line decodes payload as UTF-8 and terminates it with a newline. Blank or
// malformed payloads render as the placeholder.
func Line(payload []byte) string {
	return Text(payload) + "\n"
}

// Text is Line without the trailing separator.
func Text(payload []byte) string {
	if !utf8.Valid(payload) {
		return Placeholder
	}
	text := string(payload)
	if strings.TrimSpace(text) == "" {
		return Placeholder
	}
	return text
}

// Relay posts one append per message, in arrival order, until msgs is
// closed. It returns the number of fragments relayed.
func Relay(msgs <-chan bus.Message, post loop.Poster, sink Sink) int {
	n := 0
	for msg := range msgs {
		line := Line(msg.Payload)
		log.FragmentReceived(msg.Channel, len(msg.Payload), line == Placeholder+"\n")
		post.Post(func() { sink.AppendTranscript(line) })
		n++
	}
	return n
}
