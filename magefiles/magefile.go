//go:build mage

// Package main holds the mage targets of marketdesk.
//
//	mage build            bin/desk, stamped with $DESK_VERSION when set
//	mage test             every package, race detector on
//	mage testUnit         everything outside tests/
//	mage testIntegration  tests/integration against a fresh bin/desk
//	mage lint             golangci-lint
//	mage demo             seed a scratch data dir and list its orders
//	mage clean            drop bin/ and the demo dir
//	mage install          go install ./cmd/desk
//	mage stats            production and test lines per package
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	module   = "github.com/mesh-intelligence/marketdesk"
	desk     = "./cmd/desk"
	outDir   = "bin"
	demoDir  = ".demo"
	testsDir = module + "/tests/"
)

func ldflags() string {
	v := os.Getenv("DESK_VERSION")
	if v == "" {
		return ""
	}
	return "-X " + module + "/internal/cli.Version=" + v
}

// Build writes bin/desk.
func Build() error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", filepath.Join(outDir, "desk"), desk)
}

// Test runs every package with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestUnit runs the packages outside tests/.
func TestUnit() error {
	pkgs, err := packages()
	if err != nil {
		return err
	}
	var unit []string
	for _, p := range pkgs {
		if !strings.HasPrefix(p+"/", testsDir) {
			unit = append(unit, p)
		}
	}
	return sh.RunV("go", append([]string{"test", "-race"}, unit...)...)
}

// TestIntegration runs tests/integration. Those tests build their own
// binary; Build runs first so a broken build fails fast.
func TestIntegration() error {
	mg.Deps(Build)
	return sh.RunV("go", "test", "-count=1", "./tests/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Demo seeds a local data dir with the demo records and lists its orders.
func Demo() error {
	mg.Deps(Build)
	bin := filepath.Join(outDir, "desk")
	dirs := []string{"--config-dir", filepath.Join(demoDir, "config"), "--data-dir", filepath.Join(demoDir, "data")}
	if err := os.RemoveAll(demoDir); err != nil {
		return err
	}
	if err := sh.RunV(bin, append(dirs, "init", "--demo")...); err != nil {
		return err
	}
	if err := sh.RunV(bin, append(dirs, "counts", "orders")...); err != nil {
		return err
	}
	return sh.RunV(bin, append(dirs, "list", "orders")...)
}

// Clean removes bin/ and the demo data.
func Clean() error {
	for _, dir := range []string{outDir, demoDir} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

// Install runs go install on the desk command.
func Install() error {
	return sh.RunV("go", "install", "-ldflags", ldflags(), desk)
}

// Stats prints production and test line counts for each package.
func Stats() error {
	out, err := sh.Output("go", "list", "-f", "{{.ImportPath}}|{{.Dir}}|{{join .GoFiles \",\"}}|{{join .TestGoFiles \",\"}}|{{join .XTestGoFiles \",\"}}", "./...")
	if err != nil {
		return err
	}

	type row struct {
		pkg        string
		prod, test int
	}
	var rows []row
	var total row
	for _, line := range strings.Split(out, "\n") {
		f := strings.Split(line, "|")
		if len(f) != 5 {
			continue
		}
		r := row{pkg: strings.TrimPrefix(f[0], module+"/")}
		if r.prod, err = sumLines(f[1], f[2]); err != nil {
			return err
		}
		for _, files := range f[3:] {
			n, err := sumLines(f[1], files)
			if err != nil {
				return err
			}
			r.test += n
		}
		total.prod += r.prod
		total.test += r.test
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].pkg < rows[j].pkg })

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PACKAGE\tPROD\tTEST\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t\n", r.pkg, r.prod, r.test)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t\n", total.prod, total.test)
	return tw.Flush()
}

func packages() ([]string, error) {
	out, err := sh.Output("go", "list", "./...")
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// sumLines counts the lines of the comma-separated files in dir.
func sumLines(dir, files string) (int, error) {
	n := 0
	for _, name := range strings.Split(files, ",") {
		if name == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return 0, err
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			n++
		}
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
	}
	return n, nil
}
