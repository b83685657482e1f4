package main

import (
	"errors"

	"github.com/spf13/cobra"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/repository"
	"mentor-hub/backend/internal/service"
)

var userFlags struct {
	name       string
	email      string
	externalID string
	password   string
	role       string
	department string
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "创建账户（用于初始化管理员）",
	Example: `  mentorctl create-user --role admin --email admin@example.edu \
    --name 管理员 --external-id A0001 --password 'changeme123'`,
	RunE: runCreateUser,
}

func init() {
	f := createUserCmd.Flags()
	f.StringVar(&userFlags.name, "name", "", "姓名")
	f.StringVar(&userFlags.email, "email", "", "登录邮箱")
	f.StringVar(&userFlags.externalID, "external-id", "", "学号/工号")
	f.StringVar(&userFlags.password, "password", "", "初始密码（至少 8 位）")
	f.StringVar(&userFlags.role, "role", "mentee", "角色：admin / mentor / mentee")
	f.StringVar(&userFlags.department, "department-id", "", "院系 ID（可选）")
	for _, name := range []string{"name", "email", "external-id", "password"} {
		createUserCmd.MarkFlagRequired(name)
	}
}

func runCreateUser(cmd *cobra.Command, _ []string) error {
	if len(userFlags.password) < 8 {
		return errors.New("密码至少 8 位")
	}

	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	req := &dto.CreateUserRequest{
		Name:       userFlags.name,
		Email:      userFlags.email,
		ExternalID: userFlags.externalID,
		Password:   userFlags.password,
		Role:       userFlags.role,
	}
	if userFlags.department != "" {
		req.DepartmentID = &userFlags.department
	}

	svc := service.NewUserService(repository.NewRepository(e.db), e.logger)
	user, err := svc.CreateUser(cmd.Context(), req, "")
	if err != nil {
		return err
	}

	cmd.Printf("账户已创建: %s (%s, %s)\n", user.Email, user.Role, user.ID)
	return nil
}
