package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// NoSearchNeeded is the sentinel a rewriter returns for conversational turns
// (greetings, acknowledgments) that require no retrieval.
const NoSearchNeeded = "NO_SEARCH_NEEDED"

// Backend identifies which rewrite collaborator produced a result.
type Backend string

const (
	// BackendLocal is the low-latency local rewrite model.
	BackendLocal Backend = "local"
	// BackendCloud is the higher-latency cloud rewrite model.
	BackendCloud Backend = "cloud"
	// BackendNone means both backends failed and the original query passed through.
	BackendNone Backend = "none"
)

// Decision records how the router arrived at a rewrite result.
type Decision string

const (
	// DecisionLocal means the local backend served the request directly.
	DecisionLocal Decision = "local"
	// DecisionSpillover means local capacity was saturated and the request
	// went straight to cloud without attempting local.
	DecisionSpillover Decision = "spillover"
	// DecisionTimeoutFailover means local exceeded its deadline.
	DecisionTimeoutFailover Decision = "timeout_failover"
	// DecisionErrorFailover means local failed for a non-timeout reason.
	DecisionErrorFailover Decision = "error_failover"
	// DecisionDegraded means cloud also failed and the original query is used.
	DecisionDegraded Decision = "degraded"
)

// RewriteResult is produced once per incoming query and consumed immediately
// by the retriever.
type RewriteResult struct {
	Query    string
	Backend  Backend
	Decision Decision
	Latency  time.Duration
}

// NoSearch reports whether the rewriter signalled that this turn needs no retrieval.
func (r RewriteResult) NoSearch() bool {
	return r.Query == NoSearchNeeded
}

// Role labels a conversation turn.
type Role string

const (
	// RoleUser is a user turn.
	RoleUser Role = "user"
	// RoleAssistant is an assistant turn.
	RoleAssistant Role = "assistant"
)

// Turn is one conversation exchange entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const (
	maxHistoryTurns      = 3
	maxAssistantTurnSize = 500
)

// BuildRewritePrompt renders the standalone-query rewrite prompt shared by
// both rewrite backends. At most the last 3 history turns are included and
// assistant turns are truncated to 500 characters to bound prompt size.
func BuildRewritePrompt(query string, history []Turn) string {
	var b strings.Builder
	b.WriteString("Given the conversation below, rewrite the final user question into a single standalone search query.\n")
	b.WriteString("If the question is a greeting, acknowledgment, or otherwise needs no document search, reply with exactly ")
	b.WriteString(NoSearchNeeded)
	b.WriteString(".\nReply with the query only, no explanation.\n\n")

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, t := range history {
		content := t.Content
		if t.Role == RoleAssistant && len(content) > maxAssistantTurnSize {
			content = content[:maxAssistantTurnSize]
		}
		fmt.Fprintf(&b, "%s: %s\n", t.Role, content)
	}

	fmt.Fprintf(&b, "\nQuestion: %s", query)
	return b.String()
}

// rewriteLabel matches leading labels such as "Rewritten Query:" that chat
// models prepend despite instructions.
var rewriteLabel = regexp.MustCompile(`(?i)^(rewritten\s+query|rewritten|rewrite|query|standalone\s+query)\s*:\s*`)

// NormalizeRewriteOutput applies the mandatory post-processing shared by both
// backends: strip surrounding quotes, strip a leading label, detect the
// sentinel case-insensitively anywhere in the output, and fall back to the
// original query if the cleaned output is empty.
func NormalizeRewriteOutput(raw, original string) string {
	out := strings.TrimSpace(raw)
	out = strings.Trim(out, `"'`)
	out = rewriteLabel.ReplaceAllString(out, "")
	out = strings.Trim(out, `"'`)
	out = strings.TrimSpace(out)

	if strings.Contains(strings.ToLower(out), strings.ToLower(NoSearchNeeded)) {
		return NoSearchNeeded
	}
	if out == "" {
		return original
	}
	return out
}
