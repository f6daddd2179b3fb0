// Package modules discovers installed modules on disk.
package modules

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// DirLister treats every valid directory name below Dir as an installed
// module. The core module is always installed.
type DirLister struct {
	Dir string
}

// NewDirLister creates a lister for dir.
func NewDirLister(dir string) *DirLister {
	return &DirLister{Dir: dir}
}

// ListModules returns the installed modules in sorted order. A missing
// directory yields only the core module.
func (l *DirLister) ListModules(_ context.Context) ([]string, error) {
	names := []string{module.CoreModule}
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return names, nil
		}
		return nil, fmt.Errorf("list modules in %s: %w", l.Dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := module.NewName(e.Name()); err != nil {
			continue
		}
		if !slices.Contains(names, e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

var _ ports.ModuleLister = (*DirLister)(nil)
