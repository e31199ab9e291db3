package ui

import (
	"time"

	wire "hospital/protocol"
)

// replyOK reports whether a reply line is an OK.
func replyOK(line string) bool {
	tag, _ := wire.Decode(line)
	return tag == wire.TagOK
}

// replyMessage returns the first payload field of an OK or ERROR reply.
func replyMessage(line string) string {
	_, fields := wire.Decode(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// replyRows decodes the row payload of an OK list reply. Non-OK lines
// yield no rows.
func replyRows(line string) [][]string {
	tag, fields := wire.Decode(line)
	if tag != wire.TagOK {
		return nil
	}
	return wire.DecodeRows(fields)
}

// formatClock renders an RFC 3339 timestamp as HH:MM:SS for the chat
// view, falling back to the raw value.
func formatClock(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		if len(timestamp) >= 19 {
			return timestamp[11:19]
		}
		return timestamp
	}
	return t.Local().Format("15:04:05")
}
