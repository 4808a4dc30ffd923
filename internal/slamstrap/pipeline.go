package slamstrap

import "context"

// Pipeline sequences preflight, package install, the two sync+build stages
// and the final summary. It performs no recovery of its own; every stage
// carries its own fatal/retry policy and the first fatal error aborts the
// run (fail-fast).
type Pipeline struct {
	Cfg    *Config
	Diag   *Diag
	Runner Runner
	Apt    Retrier
	Euid   int
}

func (p *Pipeline) Run(ctx context.Context) error {
	cfg, d := p.Cfg, p.Diag

	if err := preflight(cfg, d, p.Euid); err != nil {
		return err
	}

	if err := installPackages(ctx, cfg, d, p.Runner, p.Apt); err != nil {
		return err
	}

	g2oSync := &RepoSync{Name: "g2o", Dir: cfg.G2ODir(), Spec: cfg.G2O}
	g2oState, err := g2oSync.Sync(ctx, cfg, d, p.Runner)
	if err != nil {
		return err
	}
	if err := g2oTarget(cfg).Build(ctx, cfg, d, p.Runner); err != nil {
		return err
	}

	if _, err := resolveCSparse(cfg, d); err != nil {
		return err
	}

	ovsSync := &RepoSync{Name: "openvslam", Dir: cfg.OpenVSLAMDir(), Spec: cfg.OpenVSLAM, SyncSubmodules: true}
	ovsState, err := ovsSync.Sync(ctx, cfg, d, p.Runner)
	if err != nil {
		return err
	}
	if err := openVSLAMTarget(cfg).Build(ctx, cfg, d, p.Runner); err != nil {
		return err
	}

	p.summary(g2oState, ovsState)
	return nil
}

func stateLabel(s repoState) string {
	switch s {
	case repoPinned:
		return "pinned"
	case repoPresent:
		return "tracking default branch"
	default:
		return "absent"
	}
}

// summary prints only on full success; a partially provisioned host gets an
// error and a non-zero exit instead.
func (p *Pipeline) summary(g2oState, ovsState repoState) {
	cfg, d := p.Cfg, p.Diag
	d.Okf("provisioning complete")
	d.Infof("  prefix:    %s", cfg.Prefix)
	d.Infof("  generator: %s", cfg.Generator)
	d.Infof("  g2o:       %s (%s)", cfg.G2ODir(), stateLabel(g2oState))
	d.Infof("  openvslam: %s (%s)", cfg.OpenVSLAMDir(), stateLabel(ovsState))
	d.Infof("  csparse:   %s", cfg.CSparseInclude())
}
