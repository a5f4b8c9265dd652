// Package output renders command results for terminals, pipes and scripts.
package output

import (
	"fmt"
	"strings"
)

// Mode selects how command output is rendered.
type Mode string

// Output modes.
const (
	ModeAuto  Mode = "auto"  // styled text on a terminal, plain text otherwise
	ModeText  Mode = "text"  // text, styled only on a terminal
	ModeJSON  Mode = "json"  // machine-readable JSON
	ModeTable Mode = "table" // one table row per item
)

// ParseMode validates a mode name. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeText, ModeJSON, ModeTable:
		return m, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want auto, text, json or table)", s)
	}
}
