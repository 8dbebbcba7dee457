package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/conflux/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "conflux",
		Usage: "社内ドキュメント向け RAG パイプライン（取り込み・検索・質問応答）",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "ドキュメント取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:  "pdf",
						Usage: "PDFファイルを取り込む",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "file",
								Usage:    "PDFファイルパス",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "source",
								Usage: "ソース識別子（省略時はファイル名）",
							},
						},
						Action: appcli.IngestPDFAction,
					},
					{
						Name:  "confluence",
						Usage: "Confluenceスペースを取り込む",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "space",
								Usage:    "ConfluenceスペースKEY",
								Required: true,
							},
						},
						Action: appcli.IngestConfluenceAction,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "取り込み済みドキュメントに質問する",
				ArgsUsage: "<質問文>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "検索するチャンク数の上限（省略時は設定値）",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "特定ソースに限定して検索",
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照ソースを表示",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "source",
				Usage: "ソース管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "取り込み済みソース一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: appcli.SourceListAction,
					},
					{
						Name:  "delete",
						Usage: "指定ソースを削除",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "name",
								Usage:    "ソース識別子",
								Required: true,
							},
						},
						Action: appcli.SourceDeleteAction,
					},
				},
			},
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数またはデフォルトの8000）",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
