package directory

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed demo_data.yaml
var demoData []byte

type demoDataset struct {
	Institutions []Institution `yaml:"institutions"`
	Departments  []Department  `yaml:"departments"`
	Staff        []Staff       `yaml:"staff"`
	Students     []Student     `yaml:"students"`
}

// DemoSource 内嵌演示数据集，只读
type DemoSource struct {
	data demoDataset
}

// NewDemoSource 加载内嵌演示数据集
func NewDemoSource() (*DemoSource, error) {
	return newDemoSource(demoData)
}

func newDemoSource(raw []byte) (*DemoSource, error) {
	var ds demoDataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("解析演示目录数据失败: %w", err)
	}
	return &DemoSource{data: ds}, nil
}

func (s *DemoSource) Name() string { return "demo" }

func (s *DemoSource) Students(_ context.Context, f Filter) ([]Student, error) {
	out := make([]Student, 0, len(s.data.Students))
	for _, st := range s.data.Students {
		if matches(f, st.DepartmentID, st.Name, st.ExternalID) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *DemoSource) Staff(_ context.Context, f Filter) ([]Staff, error) {
	out := make([]Staff, 0, len(s.data.Staff))
	for _, st := range s.data.Staff {
		if matches(f, st.DepartmentID, st.Name, st.ExternalID) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *DemoSource) Departments(_ context.Context) ([]Department, error) {
	return append([]Department(nil), s.data.Departments...), nil
}

func (s *DemoSource) Institutions(_ context.Context) ([]Institution, error) {
	return append([]Institution(nil), s.data.Institutions...), nil
}

func (s *DemoSource) StudentByExternalID(_ context.Context, externalID string) (*Student, error) {
	for _, st := range s.data.Students {
		if st.ExternalID == externalID {
			st := st
			return &st, nil
		}
	}
	return nil, ErrNotFound
}

func (s *DemoSource) StaffByExternalID(_ context.Context, externalID string) (*Staff, error) {
	for _, st := range s.data.Staff {
		if st.ExternalID == externalID {
			st := st
			return &st, nil
		}
	}
	return nil, ErrNotFound
}

func matches(f Filter, departmentID, name, externalID string) bool {
	if f.DepartmentID != "" && f.DepartmentID != departmentID {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(name), kw) && !strings.Contains(strings.ToLower(externalID), kw) {
			return false
		}
	}
	return true
}
