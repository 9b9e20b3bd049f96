package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/MrWong99/voxpi/internal/store"
)

func cmdHistory(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	search := fs.String("search", "", "full-text query")
	limit := fs.Int("limit", 10, "maximum number of transcripts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if e.cfg.Store.PostgresDSN == "" {
		return errors.New("no database configured; set store.postgres_dsn or VOXPI_POSTGRES_DSN")
	}

	pg, err := e.openStore(ctx)
	if err != nil {
		return err
	}

	var recs []store.Record
	if *search != "" {
		recs, err = pg.Search(ctx, *search, *limit)
	} else {
		recs, err = pg.Recent(ctx, *limit)
	}
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%s  %s  (%d segments)\n", r.CreatedAt.Format(time.DateTime), r.Source, len(r.Transcript.Segments))
		for _, seg := range r.Transcript.Segments {
			fmt.Printf("    %s\n", seg.Text)
		}
	}
	return nil
}
