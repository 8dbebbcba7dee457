package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/conflux/internal/interface/httpserver"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	port := cmd.Int("port")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if port == 0 {
		port = appCtx.Config.HTTP.Port
	}

	server, err := httpserver.NewServer(
		appCtx.Container.IngestionService,
		appCtx.Container.AskService,
		appCtx.Container.PDFExtractor,
		httpserver.WithUploadDir(appCtx.Config.HTTP.UploadDir),
		httpserver.WithServerLogger(appCtx.Logger()),
	)
	if err != nil {
		return fmt.Errorf("HTTPサーバの初期化に失敗: %w", err)
	}

	addr := fmt.Sprintf(":%d", port)
	slog.Info("HTTPサーバを起動します", "addr", addr)

	if err := server.Run(ctx, addr); err != nil {
		slog.Error("HTTPサーバが異常終了しました", "error", err)
		return err
	}

	slog.Info("HTTPサーバを停止しました")
	return nil
}
