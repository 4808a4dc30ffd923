package slamstrap

import (
	"context"
	"os"
	"path/filepath"
)

// repoState is the synchronizer's explicit state. Absent and Present are
// observed from the filesystem; Pinned is reached after a detached checkout
// of the requested revision.
type repoState int

const (
	repoAbsent repoState = iota
	repoPresent
	repoPinned
)

// RepoSync converges one checkout: clone when absent, fetch when present,
// then pin if a revision is requested. Git failures are fatal and never
// retried; a bad revision or a corrupted checkout does not fix itself.
type RepoSync struct {
	Name string
	Dir  string
	Spec RepoSpec

	// SyncSubmodules re-runs a recursive submodule init after every sync.
	// Only the second library needs this: its submodules must track the
	// pinned revision, while the first one's are fetched at clone time.
	SyncSubmodules bool
}

func (s *RepoSync) state() repoState {
	if _, err := os.Stat(filepath.Join(s.Dir, ".git")); err != nil {
		return repoAbsent
	}
	return repoPresent
}

func (s *RepoSync) git(args ...string) Command {
	return Command{Name: "git", Args: append([]string{"-C", s.Dir}, args...)}
}

func (s *RepoSync) Sync(ctx context.Context, cfg *Config, d *Diag, r Runner) (repoState, error) {
	switch s.state() {
	case repoAbsent:
		if cfg.Offline {
			d.Infof("%s: offline mode, restoring checkout from snapshot cache", s.Name)
			if err := restoreSnapshot(cfg, d, s.Name); err != nil {
				return repoAbsent, err
			}
			break
		}
		d.Infof("%s: cloning %s", s.Name, s.Spec.URL)
		if err := os.MkdirAll(filepath.Dir(s.Dir), 0o755); err != nil {
			return repoAbsent, err
		}
		clone := Command{Name: "git", Args: []string{"clone", "--recursive", s.Spec.URL, s.Dir}}
		if err := r.Run(ctx, clone); err != nil {
			return repoAbsent, fatalError(clone, err)
		}
	case repoPresent:
		d.Infof("%s: checkout exists, fetching updates", s.Name)
		fetch := s.git("fetch", "--all", "--tags", "--prune")
		if err := r.Run(ctx, fetch); err != nil {
			return repoPresent, fatalError(fetch, err)
		}
	}

	state := repoPresent
	if s.Spec.Commit != "" {
		d.Infof("%s: pinning to %s", s.Name, s.Spec.Commit)
		checkout := s.git("checkout", "--detach", s.Spec.Commit)
		if err := r.Run(ctx, checkout); err != nil {
			return repoPresent, fatalError(checkout, err)
		}
		state = repoPinned
	}

	if s.SyncSubmodules {
		sub := s.git("submodule", "update", "--init", "--recursive")
		if err := r.Run(ctx, sub); err != nil {
			return state, fatalError(sub, err)
		}
	}

	d.Okf("%s: checkout ready at %s", s.Name, s.Dir)
	return state, nil
}
