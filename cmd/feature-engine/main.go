// Command feature-engine trains and runs diagnostic feature trees.
//
//	feature-engine train --tree tree.json --segments corpus.txt [--out other.json]
//	feature-engine produce --tree tree.json
//
// The oracle is configured through OPENAI_API_KEY, OPENAI_API_BASE_URL and
// LLM_MODEL; a .env file in the working directory is honored.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kataras/golog"
	"github.com/spf13/cobra"

	"github.com/mzyy1001/AI-Custom-service/log"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "feature-engine",
		Short:         "LLM-guided troubleshooting over a diagnostic feature tree",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// .env is optional; real env vars win either way.
			_ = godotenv.Load()
			level := log.LevelInfo
			if verbose {
				level = log.LevelDebug
				golog.SetLevel("debug")
			}
			log.SetDefault(log.NewGologLoggerWithLevel(golog.Default, level))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newTrainCmd())
	root.AddCommand(newProduceCmd())

	if err := root.Execute(); err != nil {
		log.Default().Error("%v", err)
		os.Exit(1)
	}
}
