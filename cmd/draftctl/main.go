// draftctl maintains the draft queue: the pipeline itself never creates
// drafts, so content lands in the queue through this tool (or whatever
// feeds the same table).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"social_publisher/internal/config"
	"social_publisher/internal/domain"
	"social_publisher/internal/logging"
	"social_publisher/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := logging.Setup("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.NewDraftStore(db)
	txManager := postgres.NewTransactionManager(db)
	ctx := context.Background()

	switch flag.Arg(0) {
	case "add":
		contents := flag.Args()[1:]
		if len(contents) == 0 {
			fmt.Fprintln(os.Stderr, "usage: draftctl add <content> [<content>...]")
			os.Exit(1)
		}
		for _, c := range contents {
			if c == "" {
				fmt.Fprintln(os.Stderr, "draft content must be non-empty")
				os.Exit(1)
			}
		}
		err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			for _, c := range contents {
				draft := &domain.Draft{ID: uuid.NewString(), Content: c}
				if err := store.Insert(txCtx, draft); err != nil {
					return err
				}
				fmt.Println(draft.ID)
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to add drafts", "error", err)
			os.Exit(1)
		}
	case "list":
		drafts, err := store.List(ctx)
		if err != nil {
			logger.Error("failed to list drafts", "error", err)
			os.Exit(1)
		}
		for _, d := range drafts {
			line := fmt.Sprintf("%s\t%s", d.ID, d.Status)
			switch {
			case d.ExternalPostID != nil:
				line += "\t" + *d.ExternalPostID
			case d.Error != nil:
				line += "\t" + *d.Error
			}
			fmt.Println(line)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: draftctl [-config path] add|list")
		os.Exit(1)
	}
}
