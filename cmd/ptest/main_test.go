package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"-j", "2", "--timeout", "250ms", "-u", "-f", "a/*.pas b/*.pas"}); err != nil {
		t.Fatal(err)
	}
	flags := cmd.Flags()
	jobs, _ := flags.GetInt("jobs")
	timeout, _ := flags.GetDuration("timeout")
	update, _ := flags.GetBool("update")
	files, _ := flags.GetString("test-files")
	if jobs != 2 || timeout != 250*time.Millisecond || !update || files != "a/*.pas b/*.pas" {
		t.Errorf("parsed jobs=%d timeout=%s update=%v files=%q", jobs, timeout, update, files)
	}
}

func TestHashFileIgnoresName(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.pas", "program a; begin end.")
	b := writeTemp(t, dir, "b.pas", "program a; begin end.")
	c := writeTemp(t, dir, "c.pas", "program c; begin end.")
	ha, _ := hashFile(a)
	hb, _ := hashFile(b)
	hc, _ := hashFile(c)
	if ha != hb || ha == hc {
		t.Errorf("hashes a=%s b=%s c=%s", ha, hb, hc)
	}
	if _, err := hashFile(filepath.Join(dir, "missing.pas")); err == nil {
		t.Error("hashing a missing file succeeded")
	}
}

func TestExpandGlobPatterns(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.pas", "")
	b := writeTemp(t, dir, "b.pas", "")
	writeTemp(t, dir, "notes.txt", "")
	if err := os.Mkdir(filepath.Join(dir, "dir.pas"), 0o755); err != nil {
		t.Fatal(err)
	}

	pattern := filepath.Join(dir, "*.pas")
	files, err := expandGlobPatterns(pattern + " " + a)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{a, b}, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestGoldenPath(t *testing.T) {
	r := &runner{settings: &settings{}}
	if got := r.goldenPath("/src/tests/hello.pas"); got != "/src/tests/.hello.pas.json" {
		t.Errorf("goldenPath = %q", got)
	}
	r.jsonDir = "/goldens"
	if got := r.goldenPath("/src/tests/hello.pas"); got != "/goldens/.hello.pas.json" {
		t.Errorf("goldenPath with dir = %q", got)
	}
}

func TestFormatDiff(t *testing.T) {
	if formatDiff("") != "" {
		t.Error("empty diff rendered")
	}
	out := formatDiff("- old\n+ new")
	if !strings.Contains(out, cRed+"    - old"+cNone) || !strings.Contains(out, cGreen+"    + new"+cNone) {
		t.Errorf("diff rendered as %q", out)
	}
}

func TestNormalizePaths(t *testing.T) {
	file := filepath.Join("/src", "tests", "hello.pas")
	dir := filepath.Join("/tmp", "ptest-1", "abc-0")
	in := "level=info msg=\"Parsing '" + file + "'...\"\n" +
		"level=info msg=\"Writing '" + filepath.Join(dir, "out") + "'\"\n" +
		file + ":1:1: error: oops\n"
	want := "level=info msg=\"Parsing 'hello.pas'...\"\n" +
		"level=info msg=\"Writing 'out'\"\n" +
		"hello.pas:1:1: error: oops\n"
	if diff := cmp.Diff(want, normalizePaths(in, file, dir)); diff != "" {
		t.Errorf("normalized stderr mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleGoldens(t *testing.T) {
	sources, err := expandGlobPatterns(filepath.Join("..", "..", "tests", "*.pas"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) == 0 {
		t.Fatal("no sample programs found")
	}
	var wantRuns []string
	for _, cfg := range runConfigs {
		wantRuns = append(wantRuns, cfg.Name)
	}

	r := &runner{settings: &settings{}}
	for _, src := range sources {
		data, err := os.ReadFile(r.goldenPath(src))
		if err != nil {
			t.Errorf("%s: %v", filepath.Base(src), err)
			continue
		}
		var golden Golden
		if err := json.Unmarshal(data, &golden); err != nil {
			t.Errorf("%s: %v", filepath.Base(src), err)
			continue
		}
		if hash, _ := hashFile(src); golden.Hash != hash {
			t.Errorf("%s: golden hash %s, source hash %s", filepath.Base(src), golden.Hash, hash)
		}
		var gotRuns []string
		for _, run := range golden.Runs {
			gotRuns = append(gotRuns, run.Name)
		}
		if diff := cmp.Diff(wantRuns, gotRuns); diff != "" {
			t.Errorf("%s: runs mismatch (-want +got):\n%s", filepath.Base(src), diff)
		}
	}
}
