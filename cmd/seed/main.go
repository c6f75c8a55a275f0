package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/rl1809/catalog/internal/adapter/storage"
	"github.com/rl1809/catalog/internal/logging"
	"github.com/rl1809/catalog/internal/seed"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		count     int
		out       string
		seedValue uint64
		sqlDriver string
		sqlDSN    string
	)

	cmd := &cobra.Command{
		Use:          "catalog-seed",
		Short:        "Generate the catalog item store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitLogger("info")

			if count < 0 {
				return fmt.Errorf("--count must be >= 0")
			}
			if (sqlDriver == "") != (sqlDSN == "") {
				return fmt.Errorf("--sql-driver and --sql-dsn must be set together")
			}

			items := seed.Generate(count, seed.NewRand(seedValue))
			size, err := seed.WriteFile(out, items)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"items": len(items),
				"size":  humanize.Bytes(uint64(size)),
				"path":  out,
			}).Info("item store written")

			if sqlDriver == "" {
				return nil
			}
			return importItems(cmd.Context(), sqlDriver, sqlDSN, out)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", seed.DefaultCount, "number of items to generate")
	cmd.Flags().StringVarP(&out, "out", "o", filepath.Join("data", "items.json"), "output file")
	cmd.Flags().Uint64Var(&seedValue, "seed", 0, "random seed (0 = random)")
	cmd.Flags().StringVar(&sqlDriver, "sql-driver", "", "also load the items into an SQL mirror (mysql or sqlite)")
	cmd.Flags().StringVar(&sqlDSN, "sql-dsn", "", "SQL mirror DSN")

	return cmd
}

// importItems loads the written file back through the validating parser
// so the mirror holds exactly what the server will read.
func importItems(ctx context.Context, driver, dsn, path string) error {
	items, _, err := storage.NewJSONFileStore(path).ReadItems(ctx)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", driver, err)
	}
	defer db.Close()

	mirror := storage.NewSQLStore(db)
	if err := mirror.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := mirror.ImportItems(ctx, items); err != nil {
		return err
	}

	log.WithFields(log.Fields{"items": len(items), "driver": driver}).Info("SQL mirror loaded")
	return nil
}
