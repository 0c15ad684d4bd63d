package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mesh-intelligence/mealbook/internal/diary"
	"github.com/mesh-intelligence/mealbook/internal/export"
	"github.com/mesh-intelligence/mealbook/internal/ids"
	"github.com/mesh-intelligence/mealbook/internal/paths"
	"github.com/mesh-intelligence/mealbook/internal/sqlite"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// attachBackend resolves the data directory and attaches a SQLite backend.
// The caller must Detach it.
func (a *app) attachBackend() (*sqlite.Backend, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, sysErr(fmt.Errorf("resolve data dir: %w", err))
	}
	cfg := types.Config{
		Backend: a.cfg.GetString(cfgKeyBackend),
		DataDir: dataDir,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := sqlite.NewBackend()
	if err := b.Attach(cfg); err != nil {
		return nil, sysErr(fmt.Errorf("attach backend: %w", err))
	}
	return b, nil
}

func (a *app) policy() (*ids.Policy, error) {
	return ids.NewPolicy(a.cfg.GetString(cfgKeyIDStrategy), a.cfg.GetInt64(cfgKeyIDNode))
}

// offlineAllocator issues time-derived ids for collections that are not
// backed by a store.
func (a *app) offlineAllocator() (ids.Allocator, error) {
	return ids.NewTimeDerived(a.cfg.GetInt64(cfgKeyIDNode))
}

func (a *app) service(store types.Store) (*diary.Service, error) {
	p, err := a.policy()
	if err != nil {
		return nil, err
	}
	return diary.NewService(store, p, a.log), nil
}

func (a *app) exporter() (*export.Exporter, error) {
	dir, err := paths.ResolveExportDir(a.flags.exportDir, a.cfg.GetString(cfgKeyExportDir))
	if err != nil {
		return nil, sysErr(fmt.Errorf("resolve export dir: %w", err))
	}
	return export.New(dir, a.log), nil
}

// withService attaches the backend, runs fn, and detaches.
func (a *app) withService(fn func(b *sqlite.Backend, svc *diary.Service) error) error {
	b, err := a.attachBackend()
	if err != nil {
		return err
	}
	defer b.Detach()
	svc, err := a.service(b)
	if err != nil {
		return err
	}
	return fn(b, svc)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
