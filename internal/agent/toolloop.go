package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	toolLoopWindow     = 20
	toolLoopWarnAt     = 3
	toolLoopCriticalAt = 6
)

type toolLoopCall struct {
	name string
	hash string
}

// toolLoopState is a sliding window of recent tool-call name+argument
// signatures. It lets the loop notice a model stuck repeating the same
// call without making progress: 3 repeats warns the model in-band, 6
// repeats is a critical event that ends the turn rather than spinning
// forever.
type toolLoopState struct {
	calls []toolLoopCall
}

// record hashes a call's arguments, appends the signature to the
// sliding window (trimming the oldest once it exceeds toolLoopWindow),
// and returns the hash so the caller can pass it to detect after the
// call has run.
func (s *toolLoopState) record(name string, args map[string]interface{}) string {
	hash := hashArgs(args)
	s.calls = append(s.calls, toolLoopCall{name: name, hash: hash})
	if len(s.calls) > toolLoopWindow {
		s.calls = s.calls[len(s.calls)-toolLoopWindow:]
	}
	return hash
}

// recordResult is a hook for result-based loop signals (e.g. an
// identical result string on every attempt); not needed for pure
// signature-repetition detection, kept so callers have one place to
// feed both call and result.
func (s *toolLoopState) recordResult(argsHash, result string) {}

// detect reports whether the (name, argsHash) signature just recorded
// has repeated enough times within the window to warrant a warning or a
// hard stop. Returns ("", "") when neither threshold is hit.
func (s *toolLoopState) detect(name, argsHash string) (level, msg string) {
	count := 0
	for _, c := range s.calls {
		if c.name == name && c.hash == argsHash {
			count++
		}
	}
	switch {
	case count >= toolLoopCriticalAt:
		return "critical", fmt.Sprintf("tool %q called %d times with identical arguments without making progress", name, count)
	case count >= toolLoopWarnAt:
		return "warning", fmt.Sprintf("You've called %q with the same arguments %d times recently. Try a different approach.", name, count)
	default:
		return "", ""
	}
}

func hashArgs(args map[string]interface{}) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("unhashable:%v", args)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
