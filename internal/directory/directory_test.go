package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
	"mentor-hub/backend/pkg/redis"
)

// ── 测试替身 ──

var errUnavailable = errors.New("连接被拒绝")

type brokenSource struct{ DemoSource }

func (brokenSource) Name() string { return "broken" }
func (brokenSource) Students(context.Context, Filter) ([]Student, error) {
	return nil, errUnavailable
}
func (brokenSource) StudentByExternalID(context.Context, string) (*Student, error) {
	return nil, errUnavailable
}
func (brokenSource) StaffByExternalID(context.Context, string) (*Staff, error) {
	return nil, ErrNotFound
}

type fakeStudentRepo struct {
	rows     []model.Student
	listHits int
	upserted []model.Student
}

func (f *fakeStudentRepo) List(context.Context, repository.DirectoryFilter) ([]model.Student, error) {
	f.listHits++
	return f.rows, nil
}

func (f *fakeStudentRepo) GetByExternalID(_ context.Context, id string) (*model.Student, error) {
	for i := range f.rows {
		if f.rows[i].ExternalID == id {
			return &f.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStudentRepo) Upsert(_ context.Context, list []model.Student) (int64, error) {
	f.upserted = append(f.upserted, list...)
	return int64(len(list)), nil
}

type fakeDepartmentRepo struct{ byCode map[string]*model.Department }

func (f *fakeDepartmentRepo) GetByID(context.Context, string) (*model.Department, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeDepartmentRepo) GetByCode(_ context.Context, code string) (*model.Department, error) {
	if d, ok := f.byCode[code]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeDepartmentRepo) List(context.Context, string) ([]model.Department, error) {
	return nil, nil
}

type fakeProgramRepo struct{ byCode map[string]*model.Program }

func (f *fakeProgramRepo) GetByCode(_ context.Context, code string) (*model.Program, error) {
	if p, ok := f.byCode[code]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeProgramRepo) ListByDepartment(context.Context, string) ([]model.Program, error) {
	return nil, nil
}

type memCache struct {
	data map[string][]byte
}

func (m *memCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// ── 演示数据源 ──

func TestDemoSource(t *testing.T) {
	demo, err := NewDemoSource()
	require.NoError(t, err)
	ctx := context.Background()

	st, err := demo.StudentByExternalID(ctx, "STU2024001")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science and Engineering", st.Department)
	assert.Equal(t, "B.E. Computer Science", st.Program)

	_, err = demo.StaffByExternalID(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := demo.Students(ctx, Filter{Keyword: "rahul"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "STU2024002", list[0].ExternalID)
}

func TestNewDemoSource_BadYAML(t *testing.T) {
	_, err := newDemoSource([]byte("students: [::"))
	assert.Error(t, err)
}

// ── Resolver ──

func TestResolver_DemoModeSelectsDemo(t *testing.T) {
	demo, _ := NewDemoSource()
	r := NewResolver(&brokenSource{}, demo, zap.NewNop())

	assert.Equal(t, "demo", r.Source(Options{DemoMode: true}).Name())
	assert.Equal(t, "broken", r.Source(Options{}).Name())
}

func TestResolver_FallsBackWhenLiveFails(t *testing.T) {
	demo, _ := NewDemoSource()
	r := NewResolver(&brokenSource{}, demo, zap.NewNop())
	src := r.Source(Options{})
	ctx := context.Background()

	list, err := src.Students(ctx, Filter{})
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	st, err := src.StudentByExternalID(ctx, "STU2024003")
	require.NoError(t, err)
	assert.Equal(t, "Divya Shankar", st.Name)
}

func TestResolver_NotFoundDoesNotFallBack(t *testing.T) {
	demo, _ := NewDemoSource()
	r := NewResolver(&brokenSource{}, demo, zap.NewNop())

	// STF001 存在于演示数据中，但实时目录明确返回不存在时不应回退
	_, err := r.Source(Options{}).StaffByExternalID(context.Background(), "STF001")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ── 快照 ──

func TestTakeSnapshot(t *testing.T) {
	demo, _ := NewDemoSource()
	snap, err := TakeSnapshot(context.Background(), demo)
	require.NoError(t, err)

	assert.Equal(t, "demo", snap.Source)
	assert.Len(t, snap.Students, 5)
	assert.Len(t, snap.Staff, 4)
	assert.Len(t, snap.Departments, 3)
	assert.Len(t, snap.Institutions, 2)
}

func TestTakeSnapshot_PropagatesError(t *testing.T) {
	_, err := TakeSnapshot(context.Background(), &brokenSource{})
	assert.ErrorIs(t, err, errUnavailable)
}

// ── 实时数据源缓存 ──

func TestLiveSource_CachesUnfilteredList(t *testing.T) {
	students := &fakeStudentRepo{rows: []model.Student{{ExternalID: "S1", Name: "甲"}}}
	repo := &repository.Repository{Student: students}
	live := NewLiveSource(repo, WithCache(&memCache{data: map[string][]byte{}}, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		list, err := live.Students(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
	}
	assert.Equal(t, 1, students.listHits, "无筛选列表应命中缓存")

	_, err := live.Students(ctx, Filter{Keyword: "甲"})
	require.NoError(t, err)
	assert.Equal(t, 2, students.listHits, "带筛选条件不走缓存")

	require.NoError(t, live.Invalidate(ctx))
	_, _ = live.Students(ctx, Filter{})
	assert.Equal(t, 3, students.listHits, "清除缓存后重新加载")
}

func TestLiveSource_NotFound(t *testing.T) {
	repo := &repository.Repository{Student: &fakeStudentRepo{}}
	_, err := NewLiveSource(repo).StudentByExternalID(context.Background(), "X")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ── Excel 导入 ──

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseStudentSheet(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{
		{"姓名", "学号", "院系代码", "专业代码", "年级"},
		{"张三", "S100", "CSE", "BCS", "2"},
		{"", "", "", "", ""},
		{"李四", "S101", "ECE", "", "x"},
	})

	rows, err := ParseStudentSheet(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, StudentRow{Row: 2, ExternalID: "S100", Name: "张三", DepartmentCode: "CSE", ProgramCode: "BCS", SemesterYear: 2}, rows[0])
	assert.Equal(t, 1, rows[1].SemesterYear, "非法年级回落为 1")
}

func TestParseStudentSheet_BadHeader(t *testing.T) {
	buf := buildSheet(t, [][]interface{}{{"foo", "bar"}, {"1", "2"}})
	_, err := ParseStudentSheet(buf)
	assert.ErrorIs(t, err, ErrImportBadHeader)
}

func TestImporter_ImportStudents(t *testing.T) {
	inst := "inst-1"
	students := &fakeStudentRepo{}
	repo := &repository.Repository{
		Student: students,
		Department: &fakeDepartmentRepo{byCode: map[string]*model.Department{
			"CSE": {DepartmentID: "d-cse", InstitutionID: &inst},
			"ECE": {DepartmentID: "d-ece"},
		}},
		Program: &fakeProgramRepo{byCode: map[string]*model.Program{
			"BCS": {ProgramID: "p-bcs", DepartmentID: "d-cse"},
		}},
	}
	im := NewImporter(repo, nil, zap.NewNop())

	resp, err := im.ImportStudents(context.Background(), []StudentRow{
		{Row: 2, ExternalID: "S1", Name: "甲", DepartmentCode: "CSE", ProgramCode: "BCS", SemesterYear: 1},
		{Row: 3, ExternalID: "S2", Name: "乙", DepartmentCode: "XXX"},
		{Row: 4, ExternalID: "S3", Name: "丙", DepartmentCode: "ECE", ProgramCode: "BCS"},
		{Row: 5, ExternalID: "S1", Name: "甲2", DepartmentCode: "CSE"},
		{Row: 6, ExternalID: "", Name: "丁", DepartmentCode: "CSE"},
	}, "op-1")
	require.NoError(t, err)

	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, 1, resp.Imported)
	assert.Equal(t, 4, resp.Failed)
	require.Len(t, students.upserted, 1)
	assert.Equal(t, "S1", students.upserted[0].ExternalID)
	assert.Equal(t, &inst, students.upserted[0].InstitutionID)
	assert.Equal(t, "p-bcs", *students.upserted[0].ProgramID)
}
