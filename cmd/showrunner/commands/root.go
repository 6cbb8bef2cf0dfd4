package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"showrunner"
	"showrunner/db"
)

var (
	workspace string
	launcher  *showrunner.Launcher
)

func Execute() error {
	root := &cobra.Command{
		Use:   "showrunner",
		Short: "Launch, record and supervise training runs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if workspace == "" {
				dir, err := os.UserConfigDir()
				if err != nil {
					return err
				}
				workspace = filepath.Join(dir, "showrunner")
			}

			var err error
			launcher, err = showrunner.New(showrunner.WithConfigDir(workspace))
			if err != nil {
				return err
			}

			dbConn, err := db.New(filepath.Join(workspace, "showrunner.db"))
			if err != nil {
				return err
			}
			repo := db.NewRunRepo(dbConn)
			if err := launcher.WithOptions(showrunner.WithRepo(repo)); err != nil {
				return err
			}

			hookData, err := repo.GetHooks()
			if err != nil {
				return err
			}
			if err := launcher.WithOptions(showrunner.WithHooks(hookData)); err != nil {
				return err
			}

			go launcher.WriteToDB()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if launcher != nil {
				return launcher.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&workspace, "workspace", "", "workspace dir (default <user config dir>/showrunner)")

	root.AddCommand(trainCmd(), evalCmd(), runsCmd(), doctorCmd(), extractCmd(), manifestCmd(), hooksCmd())
	return root.Execute()
}
