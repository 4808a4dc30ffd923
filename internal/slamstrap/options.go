package slamstrap

import (
	"fmt"
	"io"
	"strings"
)

// normalizeTri maps boolean-like tokens to cmake's ON/OFF. Anything else is
// passed through verbatim to the configure step rather than rejected; some
// users feed cmake expressions here and the underlying build system is the
// one that decides whether they mean anything.
func normalizeTri(tok string) string {
	switch strings.ToLower(tok) {
	case "on", "true", "yes", "1":
		return "ON"
	case "off", "false", "no", "0":
		return "OFF"
	}
	return tok
}

// parseArgs consumes pipeline flags into cfg. Returns help=true when usage
// was requested, in which case nothing else may run.
func parseArgs(cfg *Config, args []string) (help bool, err error) {
	// takeValue fetches the flag's argument from `--flag=v` or the next token.
	i := 0
	takeValue := func(name, inline string, hasInline bool) (string, error) {
		if hasInline {
			return inline, nil
		}
		if i+1 >= len(args) {
			return "", usageErrorf("option %s requires a value", name)
		}
		i++
		return args[i], nil
	}

	for ; i < len(args); i++ {
		arg := args[i]
		name := arg
		inline := ""
		hasInline := false
		if j := strings.IndexByte(arg, '='); j >= 0 {
			name = arg[:j]
			inline = arg[j+1:]
			hasInline = true
		}

		switch name {
		case "--prefix":
			v, err := takeValue(name, inline, hasInline)
			if err != nil {
				return false, err
			}
			cfg.Prefix = v
		case "--src-dir":
			v, err := takeValue(name, inline, hasInline)
			if err != nil {
				return false, err
			}
			cfg.SrcDir = v
		case "--g2o-repo":
			v, err := takeValue(name, inline, hasInline)
			if err != nil {
				return false, err
			}
			cfg.G2O.URL = v
		case "--g2o-commit":
			v, err := takeValue(name, inline, hasInline)
			if err != nil {
				return false, err
			}
			cfg.G2O.Commit = v
		case "--openvslam-repo":
			v, err := takeValue(name, inline, hasInline)
			if err != nil {
				return false, err
			}
			cfg.OpenVSLAM.URL = v
		case "--openvslam-commit":
			// Empty means no pin: track the remote default branch.
			v, err := takeValue(name, inline, hasInline)
			if err != nil {
				return false, err
			}
			cfg.OpenVSLAM.Commit = v
		case "--jobs":
			v, err := takeValue(name, inline, hasInline)
			if err != nil {
				return false, err
			}
			n, perr := parsePositive(v)
			if perr != nil {
				return false, usageErrorf("invalid --jobs value %q: must be a positive integer", v)
			}
			cfg.Jobs = n
		case "--build-examples":
			cfg.BuildExamples = normalizeTri(triToken(args, &i, inline, hasInline))
		case "--build-tests":
			cfg.BuildTests = normalizeTri(triToken(args, &i, inline, hasInline))
		case "--use-pangolin":
			cfg.UsePangolin = normalizeTri(triToken(args, &i, inline, hasInline))
		case "--skip-apt":
			cfg.SkipApt = true
		case "--quiet":
			cfg.Quiet = true
		case "--no-color":
			cfg.NoColor = true
		case "--offline":
			cfg.Offline = true
		case "--help", "-h":
			return true, nil
		default:
			return false, usageErrorf("unrecognized option %q (run 'slamstrap --help')", arg)
		}
	}
	return false, nil
}

// triToken picks the tri-state flag's token: inline value, a following bare
// token, or ON for a bare flag.
func triToken(args []string, i *int, inline string, hasInline bool) string {
	if hasInline {
		return inline
	}
	if *i+1 < len(args) && !strings.HasPrefix(args[*i+1], "-") {
		*i++
		return args[*i]
	}
	return "on"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: slamstrap [subcommand] [options]

Provision a Debian host with g2o and OpenVSLAM built from pinned sources.
With no subcommand the full pipeline runs: preflight checks, apt packages,
then clone/fetch, configure, build and install of both libraries.

Subcommands:
  log                        Full-screen viewer for the per-target build logs
  snapshot save|restore|list Manage compressed checkout snapshots
  mirror push|pull|list      Exchange snapshots with the configured S3 mirror
  version                    Print version information
  help                       Show this text

Options:
  --prefix DIR             Install prefix for both libraries (default /usr/local)
  --src-dir DIR            Root for checkouts and build trees (default ~/src/slamstrap)
  --g2o-repo URL           Override the g2o repository
  --g2o-commit REV         Pin g2o to an exact revision
  --openvslam-repo URL     Override the OpenVSLAM repository
  --openvslam-commit REV   Pin OpenVSLAM; empty tracks the default branch
  --jobs N                 Parallel build jobs (default: CPU count)
  --build-examples [TOK]   Toggle OpenVSLAM examples (on/off, default on)
  --build-tests [TOK]      Toggle OpenVSLAM tests (on/off, default off)
  --use-pangolin [TOK]     Toggle the Pangolin viewer (on/off, default off)
  --skip-apt               Log the package list instead of installing it
  --offline                Restore missing checkouts from the snapshot cache
  --quiet                  Suppress diagnostics (exit code still signals result)
  --no-color               Disable ANSI colors
  --help                   Show this text
`)
}
