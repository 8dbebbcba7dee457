package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	coreask "github.com/jinford/conflux/internal/core/ask"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	showSources := cmd.Bool("show-sources")
	limit := cmd.Int("limit")
	source := cmd.String("source")

	// 質問文の取得
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	slog.Info("質問応答を開始", "question", question, "showSources", showSources)

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	params := coreask.AskParams{
		Question: question,
		Limit:    limit,
	}
	if source != "" {
		params.Source = &source
	}

	result, err := appCtx.Container.AskService.Ask(ctx, params)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// 結果出力
	fmt.Println(result.Answer)

	// --show-sourcesフラグが指定されている場合、参照ソースも出力
	if showSources && len(result.Sources) > 0 {
		fmt.Println("\n--- 参照ソース ---")
		for i, ref := range result.Sources {
			fmt.Printf("[%d] %s (chunk %d) スコア: %.4f\n",
				i+1,
				ref.Source,
				ref.ChunkIndex,
				ref.Score,
			)
		}
	}

	slog.Info("質問応答が完了しました", "retrievedChunks", result.RetrievedChunks)
	return nil
}
