package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/ai/gemini"
	"github.com/jobforge/jobforge/internal/council"
	"github.com/jobforge/jobforge/internal/jobboard"
	loggerpkg "github.com/jobforge/jobforge/internal/logger"
	"github.com/jobforge/jobforge/internal/matching"
	"github.com/jobforge/jobforge/internal/profile"
	"github.com/jobforge/jobforge/internal/search"
	"github.com/jobforge/jobforge/internal/secrets"
	"github.com/jobforge/jobforge/internal/workflow"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, score and generate application documents",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before generating documents")
	runCmd.Flags().Bool("dry-run", false, "search and score only, never call the generation council")
	runCmd.Flags().StringP("output-dir", "o", "applications", "directory for generated application documents")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := loggerpkg.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting jobforge", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Profile == nil || config.Profile.ResumeFile == "" {
		logger.Fatal("a resume file is required under profile.resume-file")
	}
	if config.Search == nil || len(config.Search.Queries) == 0 {
		logger.Fatal("at least one query is required under search.queries")
	}
	if config.Board == nil || config.Board.APIURL == "" {
		logger.Fatal("the board api url is required under board.api-url")
	}

	extractor := profile.NewExtractor()
	candidate, err := loadCandidate(extractor, config.Profile)
	if err != nil {
		logger.Fatal("loading candidate profile", zap.Error(err))
	}
	logger.Info("candidate profile extracted",
		zap.Int("skills", len(candidate.Skills)),
		zap.Strings("desired_roles", candidate.DesiredRoles),
	)

	scorer, err := newScorer(config.Scoring, extractor)
	if err != nil {
		logger.Fatal("building scorer", zap.Error(err))
	}

	boardToken, err := secrets.Load(secrets.Source{
		Name:  "job board api key",
		Value: config.Board.APIKey,
		Env:   jobboardKeyEnv,
		File:  config.Board.APIKeyFile,
	})
	if err != nil {
		logger.Fatal("loading job board api key",
			zap.Error(err),
			zap.String("hint", fmt.Sprintf("set %s or board.api-key-file in the configuration file", jobboardKeyEnv)),
		)
	}

	board := jobboard.New(config.Board.APIURL, boardToken, loggerpkg.Component(logger, "jobboard"))
	if config.Board.UserAgent != "" {
		board.UserAgent = config.Board.UserAgent
	}

	orchestrator := search.NewOrchestrator(board, ledgerStore(config.Ledger), config.Search.Limits, loggerpkg.Component(logger, "search"))

	logger.Info("starting the search", zap.Strings("queries", config.Search.Queries))
	result, err := orchestrator.Run(ctx, config.Search.Queries)
	if err != nil {
		var cooldownErr *search.CooldownActiveError
		var budgetErr *search.BudgetExceededError
		switch {
		case errors.As(err, &cooldownErr):
			logger.Info("exiting", zap.String("reason", "search cooldown active"), zap.Duration("remaining", cooldownErr.Remaining))
		case errors.As(err, &budgetErr):
			logger.Info("exiting", zap.String("reason", "search call budget exceeded"), zap.Int("used", budgetErr.Used), zap.Int("cap", budgetErr.Cap))
		default:
			logger.Fatal("search failed", zap.Error(err))
		}
		return
	}

	if len(result.Postings) == 0 {
		logger.Info("exiting", zap.String("reason", "no postings found"))
		return
	}

	threshold := generationThreshold(config.Generation)

	scored := make([]workflow.ScoredPosting, 0, len(result.Postings))
	matched := 0
	for _, posting := range result.Postings {
		req := extractor.Requirement(posting)
		match := scorer.Score(candidate, req)
		scored = append(scored, workflow.ScoredPosting{Requirement: req, Match: match})
		if match.Overall >= threshold {
			matched++
			fmt.Print(match.Summary(posting))
		}
	}

	logger.Info("scoring complete",
		zap.Int("postings", len(scored)),
		zap.Int("matched", matched),
		zap.Float64("threshold", threshold),
	)
	if err := orchestrator.RecordMatches(ctx, matched); err != nil {
		logger.Warn("recording match count", zap.Error(err))
	}

	if matched == 0 {
		logger.Info("exiting", zap.String("reason", "no postings above the threshold"))
		return
	}
	if cmd.Flag("dry-run").Value.String() == "true" {
		logger.Info("exiting", zap.String("reason", "dry run requested"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Generate application documents for %d matched postings?", matched),
			Items: []string{PromptYes, PromptNo},
		}
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	processor, err := newProcessor(ctx, config, logger)
	if err != nil {
		logger.Fatal("building generation pipeline", zap.Error(err))
	}

	records := processor.ProcessBatch(ctx, candidate, scored)

	outputDir := cmd.Flag("output-dir").Value.String()
	generated, failed := 0, 0
	for _, rec := range records {
		switch rec.State {
		case workflow.StateGenerated:
			generated++
			if err := writeDocument(outputDir, rec); err != nil {
				logger.Warn("writing generated document", zap.Error(err))
			}
		case workflow.StateFailed:
			failed++
			logger.Warn("generation failed",
				zap.String("title", rec.Posting.Title),
				zap.Int("attempts", rec.Attempts),
				zap.String("last_error", rec.LastError),
			)
		}
	}

	logger.Info("run complete",
		zap.Int("generated", generated),
		zap.Int("failed", failed),
		zap.Int("skipped", len(records)-generated-failed),
		zap.String("output_dir", outputDir),
	)
}

func loadCandidate(extractor *profile.Extractor, cfg *ProfileConfig) (profile.CandidateProfile, error) {
	text, err := os.ReadFile(cfg.ResumeFile)
	if err != nil {
		return profile.CandidateProfile{}, fmt.Errorf("read resume %q: %w", cfg.ResumeFile, err)
	}

	candidate := extractor.CandidateProfile(string(text))
	candidate.DesiredRoles = cfg.DesiredRoles
	return candidate, nil
}

func newScorer(cfg *ScoringConfig, extractor *profile.Extractor) (*matching.Scorer, error) {
	weights := matching.DefaultWeights()
	tuning := matching.DefaultTuning()
	if cfg != nil && cfg.Weights != nil {
		weights = *cfg.Weights
	}
	if cfg != nil && cfg.Tuning != nil {
		tuning = *cfg.Tuning
	}
	return matching.NewScorer(weights, tuning, extractor)
}

func generationThreshold(cfg *workflow.Config) float64 {
	if cfg != nil && cfg.Threshold > 0 {
		return cfg.Threshold
	}
	return 70
}

func newProcessor(ctx context.Context, config *Config, log *zap.Logger) (*workflow.Processor, error) {
	if config.Council == nil {
		return nil, errors.New("the council composition is required under council")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		Env:  geminiKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set %s)", err, geminiKeyEnv)
	}

	completer, err := gemini.New(ctx, apiKey, "")
	if err != nil {
		return nil, err
	}

	engine, err := council.NewEngine(completer, *config.Council, loggerpkg.Component(log, "council"))
	if err != nil {
		return nil, fmt.Errorf("building council engine: %w", err)
	}

	validator, err := workflow.NewValidator()
	if err != nil {
		return nil, err
	}

	generation := workflow.Config{}
	if config.Generation != nil {
		generation = *config.Generation
	}

	gen := workflow.NewCouncilGenerator(engine, loggerpkg.Component(log, "generation"))
	return workflow.NewProcessor(gen, validator, generation, loggerpkg.Component(log, "workflow")), nil
}

func newRedisLedgerStore(cfg *RedisConfig) search.Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return search.NewRedisStore(client, cfg.Key)
}

func writeDocument(dir string, rec *workflow.ApplicationRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, rec.ID.String()+".json")
	if err := os.WriteFile(path, []byte(rec.Document.Raw), 0o644); err != nil {
		return fmt.Errorf("write document %q: %w", path, err)
	}
	return nil
}
