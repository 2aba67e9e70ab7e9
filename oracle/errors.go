package oracle

import "errors"

// ErrUnavailable is returned when the underlying model cannot be reached:
// transport failures, timeouts, or empty completions. Replies that arrive but
// do not match the expected shape are NOT errors; they degrade to
// AnswerUnsure or "no candidate" so a session can keep making progress.
var ErrUnavailable = errors.New("oracle unavailable")
