// Copyright (c) 2025 Impyla
// Licensed under the MIT License. See LICENSE file in the project root for details.

package python

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"impyla/cli/internal/config"
	"impyla/cli/internal/errors"
	"impyla/cli/internal/helper"

	"golang.org/x/sync/singleflight"
)

// Check returns the pip names of required packages the interpreter cannot
// import. Concurrent callers share one probe; a clean result is cached.
func (p *Probe) Check(ctx context.Context, cfg *config.Config) ([]string, error) {
	interp, err := p.Interpreter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	ok := p.depsOK[interp]
	p.mu.Unlock()
	if ok {
		return nil, nil
	}

	// The shared probe is detached from the first caller's cancellation;
	// each import has its own timeout and every caller waits on its own ctx.
	ch := p.group.DoChan(interp, func() (any, error) {
		pctx := context.WithoutCancel(ctx)
		var missing []string
		for _, pkg := range Required {
			ictx, cancel := context.WithTimeout(pctx, importTimeout)
			out, err := p.runner.Output(ictx, interp, "-c", "import "+pkg.Module)
			cancel()
			if err != nil {
				p.log().Debug("import probe failed", "module", pkg.Module, "output", strings.TrimSpace(out))
				missing = append(missing, pkg.Pip)
			}
		}
		if len(missing) == 0 {
			p.mu.Lock()
			p.depsOK[interp] = true
			p.mu.Unlock()
		}
		return missing, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(errors.Cancelled, "dependency check cancelled", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	v, shared := res.Val, res.Shared
	if shared {
		p.log().Debug("dependency check shared with a concurrent caller")
	}
	missing, _ := v.([]string)
	return append([]string(nil), missing...), nil
}

// EnsureDependencies checks the required packages and offers to install the
// missing ones. It returns a MissingDependency error when anything is still
// missing afterwards.
func (p *Probe) EnsureDependencies(ctx context.Context, cfg *config.Config) error {
	missing, err := p.Check(ctx, cfg)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	return p.OfferInstall(ctx, cfg, missing)
}

// OfferInstall asks whether to pip install pkgs, lets the user pick which,
// and installs them into the selected interpreter. --user is added unless
// the interpreter runs inside a virtualenv or conda environment.
func (p *Probe) OfferInstall(ctx context.Context, cfg *config.Config, pkgs []string) error {
	pkgs = pipNames(pkgs)
	missingErr := func(msg string) *errors.E {
		e := errors.New(errors.MissingDependency, msg)
		e.Modules = pkgs
		return e
	}
	if len(pkgs) == 0 {
		return nil
	}
	if p.Prompter == nil {
		return missingErr("missing Python packages: " + strings.Join(pkgs, ", "))
	}

	ok, err := p.Prompter.Confirm(fmt.Sprintf("Missing Python packages: %s. Install them now?", strings.Join(pkgs, ", ")), true)
	if err != nil {
		return err
	}
	if !ok {
		p.Prompter.Warn("Install skipped. Run 'pip install " + strings.Join(pkgs, " ") + "' to enable query execution.")
		return missingErr("installation declined")
	}
	selected, err := p.Prompter.MultiSelect("Packages to install", pkgs, pkgs)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return missingErr("no packages selected")
	}

	interp, err := p.Interpreter(ctx, cfg)
	if err != nil {
		return err
	}
	args := []string{"-m", "pip", "install"}
	if !p.isolated(ctx, interp) {
		args = append(args, "--user")
	}
	args = append(args, selected...)

	p.log().Info("installing python packages", "python", interp, "args", strings.Join(args, " "))
	w := p.log().LineWriter("pip")
	stop := p.Prompter.Progress("Installing " + strings.Join(selected, ", "))
	err = p.runner.Stream(ctx, w, interp, args...)
	stop()
	_ = w.Close()
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(errors.Cancelled, "installation cancelled", ctx.Err())
		}
		p.Prompter.Error("pip install failed. Run 'impyla output' for details.")
		e := errors.Wrap(errors.MissingDependency, "pip install failed", err)
		e.Modules = selected
		return e
	}

	p.mu.Lock()
	delete(p.depsOK, interp)
	p.mu.Unlock()

	still, err := p.Check(ctx, cfg)
	if err != nil {
		return err
	}
	if len(still) > 0 {
		e := missingErr("still missing after install: " + strings.Join(still, ", "))
		e.Modules = still
		return e
	}
	p.Prompter.Success("Installed " + strings.Join(selected, ", "))
	return nil
}

func pipNames(modules []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range modules {
		n := PipName(m)
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

const isolatedScript = "import sys; print(sys.prefix != getattr(sys, 'base_prefix', sys.prefix))"

func (p *Probe) isolated(ctx context.Context, interp string) bool {
	if os.Getenv("VIRTUAL_ENV") != "" || os.Getenv("CONDA_PREFIX") != "" {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := p.runner.Output(ctx, interp, "-c", isolatedScript)
	return err == nil && strings.TrimSpace(out) == "True"
}

// Versions describes the interpreter and helper packages.
type Versions struct {
	Interpreter string            `json:"-"`
	Python      string            `json:"python"`
	Packages    map[string]string `json:"packages"`
}

const versionsScript = `import json, sys
try:
    from importlib.metadata import version
except ImportError:
    version = lambda n: __import__("pkg_resources").get_distribution(n).version
out = {"python": "%d.%d.%d" % sys.version_info[:3], "packages": {}}
for name in sys.argv[1:]:
    try:
        out["packages"][name] = version(name)
    except Exception:
        out["packages"][name] = ""
print(json.dumps(out))
`

// Versions reports the interpreter version and installed package versions.
func (p *Probe) Versions(ctx context.Context, cfg *config.Config) (Versions, error) {
	interp, err := p.Interpreter(ctx, cfg)
	if err != nil {
		return Versions{}, err
	}
	args := []string{"-c", versionsScript}
	for _, pkg := range Required {
		args = append(args, pkg.Pip)
	}
	var v Versions
	call := helper.Call{Interpreter: interp, Args: args, Timeout: 10 * time.Second}
	if err := helper.Invoke(ctx, call, struct{}{}, &v); err != nil {
		return Versions{}, err
	}
	v.Interpreter = interp
	return v, nil
}
