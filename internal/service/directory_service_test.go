package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/dto"
)

func newTestDirectoryService(importer *directory.Importer, settings SettingsProvider) DirectoryService {
	resolver := directory.NewResolver(nil, newFakeDirectory(), zap.NewNop())
	return NewDirectoryService(resolver, importer, settings, zap.NewNop())
}

func TestDirectoryLookups(t *testing.T) {
	svc := newTestDirectoryService(nil, staticSettings{})
	ctx := context.Background()

	st, err := svc.Student(ctx, "S001")
	if err != nil {
		t.Fatalf("查询学生失败: %v", err)
	}
	if st.Name != "张三" {
		t.Errorf("学生姓名不正确: %s", st.Name)
	}

	if _, err := svc.StaffMember(ctx, "T999"); !errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("期望 ErrDirectoryNotFound，实际: %v", err)
	}

	list, err := svc.Students(ctx, &dto.DirectoryQuery{})
	if err != nil || len(list) != 4 {
		t.Errorf("期望 4 名学生，实际 %d (%v)", len(list), err)
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("获取快照失败: %v", err)
	}
	if len(snap.Staff) != 2 {
		t.Errorf("快照教职工数量不正确: %d", len(snap.Staff))
	}
}

func TestDirectoryImport_Unavailable(t *testing.T) {
	svc := newTestDirectoryService(nil, staticSettings{})

	_, err := svc.ImportStudents(context.Background(), strings.NewReader(""), "admin-1")
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Errorf("期望 ErrDirectoryUnavailable，实际: %v", err)
	}
}

func TestDirectoryImport_DemoModeRejected(t *testing.T) {
	importer := directory.NewImporter(newMemStore().repository(), nil, zap.NewNop())
	svc := newTestDirectoryService(importer, staticSettings{DemoMode: true})

	_, err := svc.ImportStudents(context.Background(), strings.NewReader(""), "admin-1")
	if !errors.Is(err, ErrDirectoryImportDemo) {
		t.Errorf("期望 ErrDirectoryImportDemo，实际: %v", err)
	}
}
