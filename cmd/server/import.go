package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Pokatocz/quest-and-check/internal/config"
	"github.com/Pokatocz/quest-and-check/internal/database"
	"github.com/Pokatocz/quest-and-check/internal/logging"
	"github.com/Pokatocz/quest-and-check/internal/repository"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

var (
	importFile  string
	importTeam  uint
	importAs    uint
	skipInvalid bool
	strictMode  bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tasks into a team from a JSON file",
	Long: `Create tasks in a team from a JSON file, acting as an existing user who
may create tasks there (an employer, or the team's owner or manager).

Expected JSON format:
[
  {"title": "Restock shelves", "description": "Aisle 4", "xp": 50},
  {"title": "Close register", "xp": 20, "location": "Front desk"}
]

By default invalid entries are skipped and reported.
Use --strict to fail on any validation error instead; nothing is written then.`,
	Example: `  questd import -f tasks.json --team 3 --as 1
  questd import --file tasks.json --team 3 --as 1 --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport()
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON file to import (required)")
	importCmd.Flags().UintVar(&importTeam, "team", 0, "Team ID to add the tasks to (required)")
	importCmd.Flags().UintVar(&importAs, "as", 0, "User ID recorded as the creator (required)")
	importCmd.Flags().BoolVar(&skipInvalid, "skip-invalid", true, "Skip entries that fail validation")
	importCmd.Flags().BoolVar(&strictMode, "strict", false, "Fail on any validation error")
	importCmd.MarkFlagRequired("file")
	importCmd.MarkFlagRequired("team")
	importCmd.MarkFlagRequired("as")
}

func runImport() error {
	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var inputs []services.CreateTaskInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Init(cfg.Log, cfg.Environment)
	defer logging.Flush()

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	profileRepo := repository.NewProfileRepository(db)
	roles := services.NewRoleResolver(repository.NewTeamRepository(db), repository.NewMemberRepository(db), profileRepo)
	taskService := services.NewTaskService(repository.NewTaskRepository(db), roles, nil, nil, services.EvidencePolicy{
		MinPhotos:    cfg.Evidence.MinPhotos,
		MaxPhotos:    cfg.Evidence.MaxPhotos,
		MaxPhotoSize: cfg.Evidence.MaxPhotoSize,
	})

	log := logging.Logger.WithFields(logrus.Fields{"file": importFile, "team_id": importTeam})
	log.WithField("entries", len(inputs)).Info("starting task import")

	result, err := taskService.ImportTasks(importAs, importTeam, inputs, skipInvalid && !strictMode)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	for _, skip := range result.Skipped {
		log.WithFields(logrus.Fields{"index": skip.Index, "title": skip.Title}).Warn("skipped: " + skip.Reason)
	}
	log.WithFields(logrus.Fields{
		"imported": result.Imported,
		"skipped":  len(result.Skipped),
	}).Info("import complete")
	return nil
}
