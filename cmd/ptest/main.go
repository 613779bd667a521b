// ptest runs the compiler over a set of Pascal sources and compares every
// run with a stored golden result.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Execution is the observable result of one compiler invocation.
type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"-"`
	TimedOut bool          `json:"timed_out"`
	Output   string        `json:"output,omitempty"`
	Log      string        `json:"log"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

// Golden is stored next to each source as ".<file>.json".
type Golden struct {
	Hash string    `json:"hash"`
	Runs []TestRun `json:"runs"`
}

type FileTestResult struct {
	File    string `json:"file"`
	Status  string `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

type settings struct {
	compiler   string
	args       string
	testFiles  string
	skipFiles  string
	outputJSON string
	jsonDir    string
	update     bool
	timeout    time.Duration
	jobs       int
	verbose    bool
}

// Each source is compiled once per run configuration.
var runConfigs = []TestRun{
	{Name: "lex", Args: []string{"-l"}},
	{Name: "compile"},
	{Name: "no-for-loops", Args: []string{"-Fno-for-loops"}},
}

func newRootCmd() *cobra.Command {
	var s settings
	cmd := &cobra.Command{
		Use:           "ptest [flags]",
		Short:         "Golden-output regression runner for the potato compiler.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.verbose {
				log.SetLevel(log.DebugLevel)
			}
			r, err := newRunner(&s)
			if err != nil {
				return err
			}
			defer os.RemoveAll(r.tempDir)
			setupInterruptHandler(r.tempDir)
			return r.run()
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&s.compiler, "compiler", "c", "./potato", "path to the compiler under test")
	flags.StringVarP(&s.args, "compiler-args", "a", "", "extra compiler arguments (space-separated)")
	flags.StringVarP(&s.testFiles, "test-files", "f", "tests/*.pas", "glob pattern(s) for files to test (space-separated)")
	flags.StringVar(&s.skipFiles, "skip-files", "", "files to skip (space-separated)")
	flags.StringVarP(&s.outputJSON, "output", "o", ".test_results.json", "output file for the JSON test report")
	flags.StringVar(&s.jsonDir, "dir", "", "directory for golden files (defaults to the source file's directory)")
	flags.BoolVarP(&s.update, "update", "u", false, "write golden files instead of comparing against them")
	flags.DurationVar(&s.timeout, "timeout", 5*time.Second, "timeout for each compiler invocation")
	flags.IntVarP(&s.jobs, "jobs", "j", 4, "number of parallel test jobs")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "enable verbose logging")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// setupInterruptHandler cleans up on CTRL+C.
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		log.Warn("Test run cancelled. Cleaning up...")
		os.Exit(1)
	}()
}

type runner struct {
	*settings
	compilerPath string
	tempDir      string
}

func newRunner(s *settings) (*runner, error) {
	if s.jobs < 1 {
		return nil, fmt.Errorf("invalid job count %d", s.jobs)
	}
	if s.timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %s", s.timeout)
	}
	r := &runner{settings: s}
	var err error
	if r.compilerPath, err = filepath.Abs(s.compiler); err != nil {
		return nil, err
	}
	if r.tempDir, err = os.MkdirTemp("", "ptest-*"); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return r, nil
}

func (r *runner) goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if r.jsonDir != "" {
		return filepath.Join(r.jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

// hashFile computes the xxhash of a file's content.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func (r *runner) run() error {
	files, err := expandGlobPatterns(r.testFiles)
	if err != nil {
		return fmt.Errorf("invalid glob pattern(s): %w", err)
	}
	if len(files) == 0 {
		log.Info("No test files found matching the pattern(s).")
		return nil
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(r.skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < r.jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- r.testFile(file)
			}
		}()
	}

	// Files with identical content are tested once.
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		hash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if original, seen := seenHashes[hash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seenHashes[hash] = file
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var results []*FileTestResult
	for result := range resultsChan {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })

	printSummary(results)
	if err := r.writeJSONReport(results); err != nil {
		log.Error(err)
	}
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return errors.New("test suite failed")
		}
	}
	return nil
}

func (r *runner) testFile(file string) *FileTestResult {
	hash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	current := &Golden{Hash: hash}
	for i, cfg := range runConfigs {
		res, err := r.compile(file, fmt.Sprintf("%s-%d", hash, i), cfg.Args)
		if err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		current.Runs = append(current.Runs, TestRun{Name: cfg.Name, Args: cfg.Args, Result: res})
		log.Debugf("[%s] %s: exit %d in %s", filepath.Base(file), cfg.Name, res.ExitCode, res.Duration)
	}

	goldenFile := r.goldenPath(file)
	if r.update {
		if err := writeGolden(goldenFile, current); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Golden file written"}
	}

	data, err := os.ReadFile(goldenFile)
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	if golden.Hash != hash {
		log.Warnf("[%s] source changed since the golden file was written", filepath.Base(file))
	}
	if diff := cmp.Diff(golden.Runs, current.Runs, cmpopts.IgnoreFields(Execution{}, "Duration")); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output differs from golden file", Diff: diff}
	}
	return &FileTestResult{File: file, Status: "PASS"}
}

// compile runs the compiler inside a private directory so that its default
// log and output names do not collide between jobs.
func (r *runner) compile(file, id string, extra []string) (Execution, error) {
	dir := filepath.Join(r.tempDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Execution{}, err
	}
	outPath, logPath := filepath.Join(dir, "out"), filepath.Join(dir, "log")

	args := []string{"-o", outPath, "--log", logPath}
	args = append(args, strings.Fields(r.args)...)
	args = append(args, extra...)
	args = append(args, file)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	res := executeCommand(ctx, dir, r.compilerPath, args...)
	if out, err := os.ReadFile(outPath); err == nil {
		res.Output = string(out)
	}
	if logText, err := os.ReadFile(logPath); err == nil {
		res.Log = string(logText)
	}
	res.Stderr = normalizePaths(res.Stderr, file, dir)
	return res, nil
}

// normalizePaths makes compiler diagnostics independent of where the
// sources and the per-run directory live.
func normalizePaths(s, file, dir string) string {
	s = strings.ReplaceAll(s, dir+string(filepath.Separator), "")
	return strings.ReplaceAll(s, file, filepath.Base(file))
}

// executeCommand runs a command with a timeout and captures its output.
func executeCommand(ctx context.Context, dir, command string, args ...string) Execution {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut = true
		res.ExitCode = -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

func writeGolden(path string, g *Golden) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

const (
	cRed   = "\x1b[91m"
	cGreen = "\x1b[92m"
	cNone  = "\x1b[0m"
)

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		switch r.Status {
		case "PASS":
			log.Debugf("PASS %s", r.File)
		case "SKIP":
			log.Infof("SKIP %s: %s", r.File, r.Message)
		default:
			log.Errorf("%s %s: %s", r.Status, r.File, r.Message)
			fmt.Print(formatDiff(r.Diff))
		}
	}
	fmt.Printf("%d passed, %d failed, %d skipped, %d errors\n", counts["PASS"], counts["FAIL"], counts["SKIP"], counts["ERROR"])
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			sb.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			sb.WriteString(cGreen)
		}
		sb.WriteString("    " + line + cNone + "\n")
	}
	return sb.String()
}

func (r *runner) writeJSONReport(results []*FileTestResult) error {
	report := make(map[string]*FileTestResult, len(results))
	for _, res := range results {
		report[res.File] = res
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	outputFile := r.outputJSON
	if r.jsonDir != "" {
		outputFile = filepath.Join(r.jsonDir, r.outputJSON)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report to %s: %w", outputFile, err)
	}
	fmt.Printf("Full test report saved to %s\n", outputFile)
	return nil
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			abs, err := filepath.Abs(match)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				files = append(files, abs)
				seen[abs] = true
			}
		}
	}
	return files, nil
}
