package main

import (
	"github.com/spf13/cobra"

	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/notifier"
	"mentor-hub/backend/internal/outbox"
	"mentor-hub/backend/internal/repository"
)

var dispatchOutboxCmd = &cobra.Command{
	Use:   "dispatch-outbox",
	Short: "立即投递一批到期的发件箱事件",
	Long: `领取一批到期的发件箱事件并投递为站内通知，处理完即退出。
常驻服务中的投递 worker 不受影响，可用于排查积压。`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := bootstrap()
		if err != nil {
			return err
		}
		defer e.close()

		repo := repository.NewRepository(e.db)
		worker := outbox.NewWorker(repo, e.cfg.Outbox, e.logger)
		// 命令行不推送变更事件
		outbox.RegisterNotifier(worker, notifier.NewInAppDispatcher(repo.Notification, changefeed.NewPublisher(nil, e.logger), e.logger))

		n, err := worker.DispatchOnce(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("本批处理 %d 条事件\n", n)
		return nil
	},
}
