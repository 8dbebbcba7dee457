package ask

import "strings"

// BuildGroundingPrompt はRAG質問応答用のプロンプトを構築する。
// 回答は与えたコンテキストのみに基づかせ、コンテキストに答えがない場合は
// "I don't know" と述べるよう指示する。
func BuildGroundingPrompt(context, question string) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful assistant.\n\n")
	sb.WriteString("Answer the question ONLY using the provided context.\n")
	sb.WriteString("If the answer is not found in the context, say \"I don't know\".\n\n")

	sb.WriteString("Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\n")

	sb.WriteString("Question:\n")
	sb.WriteString(question)
	sb.WriteString("\n")

	return sb.String()
}
