package app

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Command はアプリケーションのサブコマンド名を表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。サブコマンド省略時の既定。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// defaultPort はSERVER_PORT未設定時のポート。
const defaultPort = "3001"

// version はビルド時に -ldflags "-X github.com/hitoshi/brewlog/internal/app.version=..." で上書きする。
var version = "dev"

// NewRootCommand はbrewlogのルートコマンドを生成する。
// wはログの出力先。nilの場合はos.Stdoutを使う。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "brewlog",
		Short: "Personal coffee journal API server",
		Long: `brewlog serves the coffee journal REST API.

Without a subcommand it starts the API server, the same as "brewlog serve".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(w)
		},
	}

	root.AddCommand(newServeCommand(w), newMigrateCommand(w), newHealthcheckCommand())
	return root
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(w)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	var (
		down        int
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply database migrations",
		Long: `Apply all pending database migrations.

Examples:
  # Apply pending migrations
  brewlog migrate

  # Roll back the last migration
  brewlog migrate --down 1

  # Show the current schema version
  brewlog migrate --version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runMigrate(cfg, migrateOptions{down: down, showVersion: showVersion})
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back the given number of migrations instead of applying")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print the current schema version and exit")
	cmd.MarkFlagsMutuallyExclusive("down", "version")
	return cmd
}

func newHealthcheckCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Check that the local API server is healthy",
		Args:  cobra.NoArgs,
		// 軽量サブコマンドのため、設定の読み込みを含むフル初期化をスキップする
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(port)
		},
	}

	defPort := os.Getenv("SERVER_PORT")
	if defPort == "" {
		defPort = defaultPort
	}
	cmd.Flags().StringVar(&port, "port", defPort, "port of the local API server")
	return cmd
}
