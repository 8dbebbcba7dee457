package ask

// 回答の代わりに返す定型文。検索やLLM呼び出しに至らなかった終端状態を表し、
// インフラ障害（error で返る）とは区別される。
const (
	// AnswerNoQuestion は質問が空だった場合の回答
	AnswerNoQuestion = "No question provided."
	// AnswerEmbeddingFailed は質問の埋め込みが生成できなかった場合の回答
	AnswerEmbeddingFailed = "Embedding failed."
	// AnswerNotFound は根拠となるコンテキストが得られなかった場合の回答
	AnswerNotFound = "I don't know."
)

// AskParams は質問応答のパラメータを表す
type AskParams struct {
	Question string  // ユーザーの質問文
	Limit    int     // 検索するチャンク数の上限（0以下はデフォルト）
	Source   *string // 指定時は特定ソースに限定して検索する
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Answer          string            // LLMによる回答（または定型文）
	RetrievedChunks int               // コンテキストに実際に使われたチャンク数
	Sources         []SourceReference // 参照したソース情報
}

// SourceReference は回答の根拠となったチャンクの出典を表す
type SourceReference struct {
	Source     string  // 取り込み元の識別子
	DocID      string  // ドキュメント識別子
	ChunkIndex int     // ドキュメント内での位置
	Score      float64 // 類似度スコア
}
