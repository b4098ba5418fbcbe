package ble

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const (
	frameVersion = 0x01

	// maxChunkBytes is the usable text per write: a 247-byte ATT MTU
	// minus frame header (5) and AES-GCM nonce+tag overhead (28).
	maxChunkBytes = 212
)

// encodeFrame prefixes a sealed payload with the protocol version and a
// monotonically increasing sequence number so the bridge can detect
// drops and replays.
func encodeFrame(seq uint32, sealed []byte) []byte {
	frame := make([]byte, 5+len(sealed))
	frame[0] = frameVersion
	binary.BigEndian.PutUint32(frame[1:5], seq)
	copy(frame[5:], sealed)
	return frame
}

// decodeFrame splits a frame back into sequence number and sealed payload.
func decodeFrame(frame []byte) (seq uint32, sealed []byte, err error) {
	if len(frame) < 5 {
		return 0, nil, fmt.Errorf("ble: frame too short: %d bytes", len(frame))
	}
	if frame[0] != frameVersion {
		return 0, nil, fmt.Errorf("ble: unsupported frame version 0x%02x", frame[0])
	}
	return binary.BigEndian.Uint32(frame[1:5]), frame[5:], nil
}

// chunkText splits text into pieces of at most maxBytes each, preferring
// word boundaries and never splitting inside a UTF-8 sequence. Returns
// nil for empty text.
func chunkText(text string, maxBytes int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > maxBytes {
		split := maxBytes
		for split > 0 && !utf8.RuneStart(text[split]) {
			split--
		}

		// Prefer breaking after a space so reassembly is byte exact.
		cut := split
		for i := split; i > 0; i-- {
			if text[i-1] == ' ' {
				cut = i
				break
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return append(chunks, text)
}
