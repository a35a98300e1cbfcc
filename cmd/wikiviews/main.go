package main

import (
	"context"
	"os"

	"github.com/wikistats/wikiviews/internal/cmd"
	"github.com/wikistats/wikiviews/internal/log"
)

func main() {
	if err := cmd.App().Run(context.Background(), os.Args); err != nil {
		log.Get().Fatal().Err(err).Msg("wikiviews")
	}
}
