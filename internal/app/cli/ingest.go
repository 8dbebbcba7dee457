package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/urfave/cli/v3"

	coreingestion "github.com/jinford/conflux/internal/core/ingestion"
	"github.com/jinford/conflux/internal/infra/confluence"
)

// IngestPDFAction はPDFファイルを取り込むコマンドのアクション
func IngestPDFAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	path := cmd.String("file")
	source := cmd.String("source")
	if source == "" {
		source = filepath.Base(path)
	}

	slog.Info("PDF取り込みを開始", "file", path, "source", source)

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	text, err := appCtx.Container.PDFExtractor.ExtractText(path)
	if err != nil {
		slog.Error("PDFのテキスト抽出に失敗しました", "error", err)
		return fmt.Errorf("PDFのテキスト抽出に失敗: %w", err)
	}

	chunks, err := appCtx.Container.IngestionService.Ingest(ctx, coreingestion.IngestParams{
		Text:   text,
		Source: source,
	})
	if err != nil {
		slog.Error("PDF取り込みに失敗しました", "error", err)
		return fmt.Errorf("PDF取り込みに失敗: %w", err)
	}

	fmt.Printf("%d チャンクを登録しました (source: %s)\n", chunks, source)
	slog.Info("PDF取り込みが完了しました", "chunks", chunks, "source", source)
	return nil
}

// IngestConfluenceAction はConfluenceスペースを取り込むコマンドのアクション
func IngestConfluenceAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	spaceKey := cmd.String("space")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config.Confluence
	client, err := confluence.NewClient(
		cfg.BaseURL,
		cfg.Username,
		cfg.APIToken,
		confluence.WithClientLogger(appCtx.Logger()),
	)
	if err != nil {
		return fmt.Errorf("Confluenceクライアントの初期化に失敗: %w", err)
	}

	slog.Info("Confluenceページの取得を開始", "space", spaceKey)

	pages, err := client.FetchPages(ctx, spaceKey)
	if err != nil {
		slog.Error("Confluenceページの取得に失敗しました", "error", err)
		return fmt.Errorf("Confluenceページの取得に失敗: %w", err)
	}

	if len(pages) == 0 {
		fmt.Println("取り込み対象のページが見つかりませんでした")
		return nil
	}

	chunks, ingested, err := appCtx.Container.IngestionService.IngestPages(ctx, pages, "confluence:")
	if err != nil {
		slog.Error("Confluence取り込みに失敗しました", "error", err)
		return fmt.Errorf("Confluence取り込みに失敗: %w", err)
	}

	fmt.Printf("%d ページ中 %d ページを取り込み、%d チャンクを登録しました\n", len(pages), ingested, chunks)
	slog.Info("Confluence取り込みが完了しました", "pages", ingested, "chunks", chunks)
	return nil
}
