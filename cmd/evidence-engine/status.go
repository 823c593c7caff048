// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider credential availability",
	Long: `Status reports which provider credentials are present. Unkeyed public
providers are always listed as available. Only presence is checked, never
validity: a present-but-invalid key still shows as available here and
fails at call time instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		snap := reg.Snapshot()
		names := make([]string, 0, len(snap))
		for name := range snap {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			state := "unavailable"
			if snap[name] {
				state = "available"
			}
			fmt.Printf("%-16s %s\n", name, state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
