package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/app"
	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/services"
)

var (
	resumeDir string
	jobDir    string
	runMatch  bool
	strategy  string
	topK      int
	output    string
	jsonLogs  bool
	debugLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load resumes and job descriptions from disk and optionally rank them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if resumeDir == "" && jobDir == "" && !runMatch {
			return errors.New("nothing to do, pass --resumes, --jobs or --match")
		}
		return ingest(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&resumeDir, "resumes", "r", "", "directory of resume files (pdf, docx, txt)")
	rootCmd.Flags().StringVarP(&jobDir, "jobs", "j", "", "directory of job descriptions (json or txt)")
	rootCmd.Flags().BoolVarP(&runMatch, "match", "m", false, "rank every resume against every job description afterwards")
	rootCmd.Flags().StringVarP(&strategy, "strategy", "s", "", "similarity strategy for --match (lexical or semantic)")
	rootCmd.Flags().IntVar(&topK, "top-k", 5, "candidates to print per job description")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "write the full --match rankings to this JSON file")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "json format for logging")
	rootCmd.PersistentFlags().BoolVarP(&debugLogs, "debug", "d", false, "verbose/debug output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type summary struct {
	ok     int
	failed int
}

func ingest(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	zl, err := logger.New(jsonLogs, debugLogs)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = zl.Sync() }()

	cfg, _ := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.Build(ctx, cfg, zl)
	if err != nil {
		return err
	}

	var total summary
	if resumeDir != "" {
		s, err := ingestResumes(ctx, a.Documents, resumeDir, zl)
		if err != nil {
			return err
		}
		total.ok += s.ok
		total.failed += s.failed
	}
	if jobDir != "" {
		s, err := ingestJobs(ctx, a.Documents, jobDir, zl)
		if err != nil {
			return err
		}
		total.ok += s.ok
		total.failed += s.failed
	}
	zl.Info("ingestion summary", zap.Int("successful", total.ok), zap.Int("failed", total.failed))

	if runMatch {
		opts := a.Defaults
		if strategy != "" {
			if opts.Strategy, err = matching.ParseStrategy(strategy); err != nil {
				return err
			}
		}
		// Keep every result; --top-k only limits what is printed.
		opts.TopK = 0

		result, err := a.Matcher.MatchAllPairs(ctx, opts)
		if err != nil {
			return fmt.Errorf("match run failed: %w", err)
		}
		printRanking(result, topK, zl)

		if output != "" {
			if err := writeRanking(output, result); err != nil {
				return err
			}
			zl.Info("rankings saved", zap.String("file", output))
		}
	}

	if total.failed > 0 {
		return fmt.Errorf("%d documents failed to ingest", total.failed)
	}
	return nil
}

func ingestResumes(ctx context.Context, docs services.DocumentService, dir string, zl *zap.Logger) (summary, error) {
	var s summary

	files, err := listFiles(dir, ".pdf", ".docx", ".txt")
	if err != nil {
		return s, err
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			zl.Error("failed to read resume", zap.String("path", path), zap.Error(err))
			s.failed++
			continue
		}

		resume, err := docs.IngestResume(ctx, filepath.Base(path), data)
		if err != nil {
			zl.Error("failed to ingest resume", zap.String("path", path), zap.Error(err))
			s.failed++
			continue
		}

		zl.Info("resume ingested",
			zap.String("id", resume.ID.String()),
			zap.String("file", resume.FileName),
			zap.String("candidate", resume.CandidateName),
			zap.Strings("skills", resume.Skills))
		s.ok++
	}
	return s, nil
}

func ingestJobs(ctx context.Context, docs services.DocumentService, dir string, zl *zap.Logger) (summary, error) {
	var s summary

	files, err := listFiles(dir, ".json", ".txt")
	if err != nil {
		return s, err
	}

	for _, path := range files {
		req, err := loadJobFile(path)
		if err != nil {
			zl.Error("failed to read job description", zap.String("path", path), zap.Error(err))
			s.failed++
			continue
		}

		jd, err := docs.CreateJobDescription(ctx, req)
		if err != nil {
			zl.Error("failed to store job description", zap.String("path", path), zap.Error(err))
			s.failed++
			continue
		}

		zl.Info("job description stored", zap.String("id", jd.ID.String()), zap.String("title", jd.Title))
		s.ok++
	}
	return s, nil
}

// listFiles returns the files in dir with one of exts, sorted by name.
func listFiles(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// loadJobFile reads a job description. JSON files carry the API request
// body; in text files the first non-blank line is the title and the rest is
// the description.
func loadJobFile(path string) (models.CreateJobDescriptionRequest, error) {
	var req models.CreateJobDescriptionRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("invalid job description json: %w", err)
		}
		return req, nil
	}

	text := strings.TrimSpace(string(data))
	title, rest, _ := strings.Cut(text, "\n")
	req.Title = strings.TrimSpace(title)
	req.Description = strings.TrimSpace(rest)
	if req.Title == "" {
		return req, errors.New("job description file is empty")
	}
	return req, nil
}

// rankingExport is the JSON layout written by --output.
type rankingExport struct {
	Jobs   []models.MatchResponse `json:"jobs"`
	Failed []models.JobFailure    `json:"failed"`
}

func writeRanking(path string, result *services.AllPairsResult) error {
	export := rankingExport{
		Jobs:   make([]models.MatchResponse, 0, len(result.Jobs)),
		Failed: result.Failed,
	}
	for _, batch := range result.Jobs {
		export.Jobs = append(export.Jobs, batch.Response())
	}
	if export.Failed == nil {
		export.Failed = []models.JobFailure{}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rankings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rankings: %w", err)
	}
	return nil
}

func printRanking(result *services.AllPairsResult, limit int, zl *zap.Logger) {
	for _, batch := range result.Jobs {
		zl.Info("ranking",
			zap.String("job_description_id", batch.JobDescriptionID.String()),
			zap.String("strategy", string(batch.StrategyUsed)),
			zap.Bool("degraded", batch.Degraded),
			zap.Int("matched", batch.Total),
			zap.Int("skipped", len(batch.Skipped)))

		for i, r := range batch.Results {
			if limit > 0 && i >= limit {
				break
			}
			zl.Info("candidate",
				zap.Int("rank", r.Rank),
				zap.String("name", r.Resume.CandidateName),
				zap.Float64("score", r.SimilarityScore),
				zap.Strings("matched_skills", r.MatchedSkills))
		}
		if batch.PersistError != nil {
			zl.Warn("ranking not stored", zap.Error(batch.PersistError))
		}
	}
	for _, f := range result.Failed {
		zl.Error("job description not matched", zap.String("job_description_id", f.JobDescriptionID.String()), zap.String("error", f.Error))
	}
}
