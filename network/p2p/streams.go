package p2p

import (
	"encoding/json"
	"io"
)

// Wire frames for the flood protocol. A stream carries one or more
// newline-delimited JSON frames.

type frameType string

const (
	frameSubscribe   frameType = "subscribe"
	frameUnsubscribe frameType = "unsubscribe"
	frameMessage     frameType = "message"
)

type frame struct {
	Type     frameType `json:"type"`
	Topics   []string  `json:"topics,omitempty"`
	Envelope *Envelope `json:"envelope,omitempty"`
}

// JSON stream reader/writer for protocol communication.

type JSONStreamReader struct {
	decoder *json.Decoder
}

func NewJSONStreamReader(r io.Reader) *JSONStreamReader {
	return &JSONStreamReader{decoder: json.NewDecoder(r)}
}

// ReadJSON reads the next JSON object from the stream.
func (jsr *JSONStreamReader) ReadJSON(v interface{}) error {
	return jsr.decoder.Decode(v)
}

type JSONStreamWriter struct {
	encoder *json.Encoder
}

func NewJSONStreamWriter(w io.Writer) *JSONStreamWriter {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return &JSONStreamWriter{encoder: encoder}
}

// WriteJSON writes a JSON object to the stream.
func (jsw *JSONStreamWriter) WriteJSON(v interface{}) error {
	return jsw.encoder.Encode(v)
}
