package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// SourceListAction は取り込み済みソース一覧を表示するコマンドのアクション
func SourceListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Container.IngestionService.ListSources(ctx)
	if err != nil {
		slog.Error("ソース一覧の取得に失敗しました", "error", err)
		return fmt.Errorf("ソース一覧の取得に失敗: %w", err)
	}

	if len(stats) == 0 {
		fmt.Println("取り込み済みのソースはありません")
		return nil
	}

	fmt.Printf("%-40s %10s %s\n", "SOURCE", "POINTS", "LAST INDEXED")
	for _, stat := range stats {
		fmt.Printf("%-40s %10d %s\n",
			stat.Source,
			stat.PointCount,
			stat.LastIndexedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}

// SourceDeleteAction は指定ソースを削除するコマンドのアクション
func SourceDeleteAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	source := cmd.String("name")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.IngestionService.DeleteSource(ctx, source); err != nil {
		slog.Error("ソースの削除に失敗しました", "source", source, "error", err)
		return fmt.Errorf("ソースの削除に失敗: %w", err)
	}

	fmt.Printf("ソース %s を削除しました\n", source)
	return nil
}
