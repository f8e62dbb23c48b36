// Command brewlog はコーヒー記録APIサーバーを起動する。
//
// 使い方:
//
//	brewlog [serve]                 APIサーバーを起動する
//	brewlog migrate [--down N]      データベースマイグレーションを実行する
//	brewlog healthcheck [--port P]  ローカルのAPIサーバーの死活を確認する
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/brewlog/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("brewlog exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
