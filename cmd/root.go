/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package main

/*****************************************************************************************************************/

import (
	"github.com/spf13/cobra"

	"github.com/stellarforge/platesolve/internal/indexer"
	"github.com/stellarforge/platesolve/internal/solver"
)

/*****************************************************************************************************************/

var rootCommand = &cobra.Command{
	Use:   "platesolve",
	Short: "platesolve is a command-line tool for detecting stars and performing an astrometric plate solve on an image.",
	Long:  "platesolve is a command-line tool for detecting stars and performing an astrometric plate solve on an image.",
}

/*****************************************************************************************************************/

func init() {
	rootCommand.AddCommand(solver.ExtractCommand)
	rootCommand.AddCommand(solver.SolveCommand)

	indexCommand := indexer.IndexCommand
	indexCommand.AddCommand(indexer.InspectCommand)
	rootCommand.AddCommand(indexCommand)
}

/*****************************************************************************************************************/

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		panic(err)
	}
}

/*****************************************************************************************************************/
