package generation

import (
	"fmt"

	"docqa/types"
)

// SystemPrompt instructs the model to stay inside the supplied context.
const SystemPrompt = `You are a helpful AI assistant that answers questions based on the provided context.

Your guidelines:
1. Answer questions using ONLY the information from the provided context
2. If the context doesn't contain enough information to answer the question, say so
3. Be concise but thorough in your responses
4. Cite specific parts of the context when relevant
5. If asked about something not in the context, clearly state that you don't have that information

Always maintain accuracy and never make up information not present in the context.`

const promptTemplate = `Context information:
%s

Question: %s

Based on the context above, please provide a detailed answer to the question. If the context doesn't contain the information needed to answer the question, please say so.`

// RenderUserPrompt binds the context block and question into the user turn.
func RenderUserPrompt(question, contextText string) string {
	return fmt.Sprintf(promptTemplate, contextText, question)
}

// BuildMessages assembles the chat sequence: system prompt, prior turns,
// then the context-grounded question.
func BuildMessages(question, contextText string, history []types.ChatMessage) []types.ChatMessage {
	messages := make([]types.ChatMessage, 0, len(history)+2)
	messages = append(messages, types.ChatMessage{Role: types.RoleSystem, Content: SystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, types.ChatMessage{
		Role:    types.RoleUser,
		Content: RenderUserPrompt(question, contextText),
	})
	return messages
}
