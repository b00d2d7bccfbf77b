package chat

// Finish is the routing value that terminates the orchestration graph.
const Finish = "FINISH"

// State is the conversation state threaded through the orchestration graph.
// Messages is append-only and strictly ordered; Next holds the supervisor's
// routing decision and must be a known worker name or Finish.
type State struct {
	Messages []Message
	Next     string
}

// Append adds messages to the history, preserving insertion order.
func (s *State) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// LastAssistantText returns the text of the most recent assistant message,
// or "" if none exists.
func (s *State) LastAssistantText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].PlainText()
		}
	}
	return ""
}

// ValidNext reports whether v is Finish or one of the known worker names.
func ValidNext(v string, workers []string) bool {
	if v == Finish {
		return true
	}
	for _, w := range workers {
		if v == w {
			return true
		}
	}
	return false
}
