package main

import (
	"github.com/spf13/cobra"

	"mentor-hub/backend/pkg/database"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := bootstrap()
		if err != nil {
			return err
		}
		defer e.close()

		sqlDB, err := e.db.DB()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(sqlDB, e.logger); err != nil {
			return err
		}
		cmd.Println("迁移完成")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "回滚最近的迁移",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := bootstrap()
		if err != nil {
			return err
		}
		defer e.close()

		sqlDB, err := e.db.DB()
		if err != nil {
			return err
		}
		if err := database.RollbackMigrations(sqlDB, rollbackSteps, e.logger); err != nil {
			return err
		}
		cmd.Printf("已回滚 %d 个迁移\n", rollbackSteps)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看当前迁移版本",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := bootstrap()
		if err != nil {
			return err
		}
		defer e.close()

		sqlDB, err := e.db.DB()
		if err != nil {
			return err
		}
		st, err := database.GetMigrationStatus(sqlDB)
		if err != nil {
			return err
		}
		if !st.Applied {
			cmd.Println("尚未执行任何迁移")
			return nil
		}
		cmd.Printf("版本: %d  dirty: %v\n", st.Version, st.Dirty)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "回滚步数")
	migrateCmd.AddCommand(migrateDownCmd, migrateStatusCmd)
}
