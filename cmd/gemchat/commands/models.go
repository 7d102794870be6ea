package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gemchat/gemchat/internal/transport"
)

var modelsCmd = &cobra.Command{
	Use:   "models [name]",
	Short: "List available models, or resolve a model name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		client := transport.NewClient(settings.ServerURL)
		models, err := client.Models(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}

		if len(args) == 1 {
			fmt.Println(transport.ResolveModel(args[0], models))
			return nil
		}

		for _, m := range models {
			if m.DisplayName != "" {
				fmt.Printf("%-40s %s\n", m.Name, m.DisplayName)
			} else {
				fmt.Println(m.Name)
			}
		}
		return nil
	},
}
