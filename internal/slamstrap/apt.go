package slamstrap

import (
	"context"
	"strings"
	"time"
)

// Packages both libraries need on a Debian host. The package manager's own
// semantics make the install idempotent; no extra state is tracked here.
var basePackages = []string{
	"build-essential",
	"cmake",
	"git",
	"pkg-config",
	"ninja-build",
	"libeigen3-dev",
	"libsuitesparse-dev",
	"libopencv-dev",
	"libyaml-cpp-dev",
	"libglew-dev",
	"libgoogle-glog-dev",
	"libgflags-dev",
}

func defaultAptRetrier() Retrier {
	return Retrier{Attempts: 3, Delay: 5 * time.Second}
}

// installPackages refreshes the package index and installs the declared set,
// both through the retry loop. With --skip-apt it only logs what would run.
func installPackages(ctx context.Context, cfg *Config, d *Diag, r Runner, ret Retrier) error {
	if cfg.SkipApt {
		d.Infof("skipping apt step; would install: %s", strings.Join(basePackages, " "))
		return nil
	}

	env := []string{"DEBIAN_FRONTEND=noninteractive"}

	update := Command{Name: "apt-get", Args: []string{"update"}, Env: env, AsRoot: true}
	d.Infof("refreshing package index")
	if err := ret.Do(ctx, d, "apt-get update", func() error {
		return r.Run(ctx, update)
	}); err != nil {
		return transientError(update, err)
	}

	args := append([]string{"install", "-y", "--no-install-recommends"}, basePackages...)
	install := Command{Name: "apt-get", Args: args, Env: env, AsRoot: true}
	d.Infof("installing %d packages", len(basePackages))
	if err := ret.Do(ctx, d, "apt-get install", func() error {
		return r.Run(ctx, install)
	}); err != nil {
		return transientError(install, err)
	}

	d.Okf("system packages present")
	return nil
}
