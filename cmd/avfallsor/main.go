package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "avfallsor",
		Short:         "Publish Avfall Sør pickup dates to MQTT for Home Assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newLookupCmd(), newServeCmd(), newMigrateCmd())

	if err := root.Execute(); err != nil {
		log.Printf("avfallsor: %v", err)
		os.Exit(1)
	}
}
