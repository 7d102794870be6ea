package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		st, closeStore, err := openStore(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer closeStore()

		for _, s := range st.Load(cmd.Context()) {
			updated := time.UnixMilli(s.UpdatedAt).Format("2006-01-02 15:04")
			fmt.Printf("%s  %-30s %3d messages  updated %s\n", s.ID, s.Title, len(s.Messages), updated)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		st, closeStore, err := openStore(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer closeStore()

		if _, err := st.Get(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("unknown session %s", args[0])
		}
		if err := st.DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
