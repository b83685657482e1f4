package directory

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Snapshot 目录全量快照
type Snapshot struct {
	Source       string        `json:"source"`
	Students     []Student     `json:"students"`
	Staff        []Staff       `json:"staff"`
	Departments  []Department  `json:"departments"`
	Institutions []Institution `json:"institutions"`
}

// TakeSnapshot 并发拉取四类目录数据，任一失败即返回错误
func TakeSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	snap := &Snapshot{Source: src.Name()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := src.Students(ctx, Filter{})
		snap.Students = list
		return err
	})
	g.Go(func() error {
		list, err := src.Staff(ctx, Filter{})
		snap.Staff = list
		return err
	})
	g.Go(func() error {
		list, err := src.Departments(ctx)
		snap.Departments = list
		return err
	})
	g.Go(func() error {
		list, err := src.Institutions(ctx)
		snap.Institutions = list
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
