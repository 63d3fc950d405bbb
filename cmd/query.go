package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AA-Fatima/599-cal/internal/pipeline"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Answer a single calorie query and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		outcome := env.Pipeline.HandleRequest(ctx, pipeline.Request{
			Query:     strings.Join(args, " "),
			SessionID: uuid.NewString(),
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
