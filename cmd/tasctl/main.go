// tasctl утилита обслуживания файлов записей .tas
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/annel0/tas-replay/internal/config"
	"github.com/annel0/tas-replay/internal/observability"
	"github.com/spf13/cobra"
)

var (
	configPath string
	catalogDir string
	useZstd    bool
	legacyFmt  bool
)

var rootCmd = &cobra.Command{
	Use:           "tasctl",
	Short:         "Просмотр, проверка и преобразование записей TAS",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Показать заголовок и содержимое записи",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspectFile(cmd.Context(), cmd.OutOrStdout(), args[0], legacyFmt)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Проверить контрольную сумму и разбор записей",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return verifyFiles(cmd.Context(), cmd.OutOrStdout(), args, legacyFmt)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <legacy-file> <out-file>",
	Short: "Преобразовать запись старого формата в контейнер",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertFile(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], useZstd)
	},
}

var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "Перечислить записи каталога",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		dir := cfg.TAS.GetRecordsDir()
		if len(args) == 1 {
			dir = args[0]
		}
		return listRecords(cmd.Context(), cmd.OutOrStdout(), dir, catalogDir, legacyFmt)
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [dir]",
	Short: "Перестроить индекс записей по файлам каталога",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		dir := cfg.TAS.GetRecordsDir()
		if len(args) == 1 {
			dir = args[0]
		}
		catalog := catalogDir
		if catalog == "" {
			catalog = cfg.Storage.GetCatalogDir()
		}
		return reindex(cmd.Context(), cmd.OutOrStdout(), dir, catalog, legacyFmt)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Путь к config.yml (по умолчанию TAS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog", "", "Каталог индекса записей (badger)")
	rootCmd.PersistentFlags().BoolVar(&legacyFmt, "legacy", false, "Читать файлы как записи старого формата (без заголовка)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().BoolVar(&useZstd, "zstd", false, "Сжать полезную нагрузку zstd")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reindexCmd)
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️ Телеметрия не запущена: %v\n", err)
		shutdown = func(context.Context) error { return nil }
	}

	err = rootCmd.ExecuteContext(ctx)
	_ = shutdown(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
