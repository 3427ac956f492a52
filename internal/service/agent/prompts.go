package agent

import (
	"strings"

	"polaris/internal/domain/models/chat"
)

// agentSystemPrompt is the base system prompt for the workspace agent.
const agentSystemPrompt = `You are Polaris, an assistant that manages a project workspace of files and folders.

You have tools to list, read, create, update, rename and delete files and folders, and to fetch web pages for reference. Use them whenever the user's request involves the workspace; do not guess at file contents you have not read.

Guidelines:
- File and folder names are plain names without slashes. The hierarchy comes from creating folders and placing files inside them.
- A file and a folder may share a name in the same place, but two files (or two folders) may not.
- Deleting a folder deletes everything inside it. Confirm you have the right target before deleting.
- When a tool reports an error, read it and adjust; do not repeat the same call unchanged.
- Keep your final answer short and concrete: say what you did and where things are.`

// titleSystemPrompt drives single-shot conversation title generation.
const titleSystemPrompt = `Generate a short title (at most 6 words) for a conversation that starts with the user message below. Reply with the title only: no quotes, no punctuation at the end, no explanation.`

// conversationHistoryHeader introduces prior messages folded into the system
// prompt. The model sees history as context, not as turns to answer again.
const conversationHistoryHeader = "## Previous Conversation\n\nFor context, here are the most recent messages in this conversation:"

// buildSystemPrompt appends recent conversation history to the base prompt.
// The placeholder message being processed and empty messages are skipped.
func buildSystemPrompt(history []chat.Message, currentMessageID string) string {
	var lines []string
	for _, msg := range history {
		if msg.ID == currentMessageID {
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		lines = append(lines, msg.Role+": "+msg.Content)
	}

	if len(lines) == 0 {
		return agentSystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(agentSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(conversationHistoryHeader)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

// sanitizeTitle normalizes model output into a storable title.
func sanitizeTitle(raw string, maxLen int) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)
	if len(title) > maxLen {
		title = title[:maxLen]
	}
	return title
}
