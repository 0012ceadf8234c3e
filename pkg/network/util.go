package network

import "time"

// writeBuf is a tiny growable byte buffer implementing io.Writer, used to
// encode a message before a single Conn.Write call so a frame is never
// split across multiple TCP writes.
type writeBuf struct {
	b []byte
}

func (w *writeBuf) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *writeBuf) Bytes() []byte {
	return w.b
}

// unixTime converts a wire-format 32-bit Unix timestamp to time.Time.
func unixTime(t uint32) time.Time {
	return time.Unix(int64(t), 0)
}
