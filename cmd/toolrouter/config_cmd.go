package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect router configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Router Configuration")
	fmt.Println("=====================")
	fmt.Printf("Execution Model:      %s\n", cfg.ExecutionModel)
	fmt.Printf("Embedding Model:      %s\n", cfg.EmbeddingModel)
	fmt.Printf("Similarity Threshold: %.2f\n", cfg.SimilarityThreshold)
	fmt.Printf("Relative Cutoff:      %.2f\n", cfg.RelativeScoreCutoff)
	fmt.Printf("Search Top K:         %d\n", cfg.SearchTopK)
	fmt.Printf("Discover Binding K:   %d\n", cfg.DiscoverBindingK)
	fmt.Printf("Max Cache Size:       %d\n", cfg.MaxCacheSize)
	fmt.Printf("Preload Count:        %d\n", cfg.PreloadCount)
	fmt.Printf("Preload Concurrency:  %d\n", cfg.PreloadConcurrency)
	fmt.Printf("Max History Turns:    %d\n", cfg.MaxHistoryTurns)
	fmt.Printf("Max Steps:            %d\n", cfg.MaxSteps)
	fmt.Printf("Health Cooldown:      %ds\n", cfg.HealthCooldownSeconds)
	fmt.Printf("Turn Timeout:         %ds\n", cfg.TurnTimeoutSeconds)
	fmt.Printf("Data Dir:             %s\n", cfg.DataDir)
	fmt.Printf("Debug:                %t\n", cfg.Debug)

	if len(cfg.KeywordNudge) > 0 {
		fmt.Println("\nKeyword Nudges:")
		for _, rule := range cfg.KeywordNudge {
			fmt.Printf("  - %s: keywords=[%s] queries=[%s]\n",
				rule.Category, strings.Join(rule.Keywords, ", "), strings.Join(rule.DiscoveryQueries, ", "))
		}
	}

	return nil
}
