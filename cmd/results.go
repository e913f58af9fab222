package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/bootfit/internal/store"
)

var (
	resultsDataDir string
	keepLast       int
	olderThanDays  int
	forceClean     bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored fit results",
	Long: `Manage persisted fit results including listing and cleaning old entries.
Each completed server fit is stored with its coefficient estimates,
covariance and replicate trace.`,
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored fit results",
	Long:  `Display all stored fits with metadata including job ID, timestamp, coefficient count, replicates and disk usage.`,
	RunE:  runListResults,
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old fit results",
	Long: `Delete old fit results based on retention policy.
You can specify how many results to keep or delete results older than N days.`,
	RunE: runCleanResults,
}

func init() {
	// Add results command to root
	rootCmd.AddCommand(resultsCmd)

	// Add subcommands
	resultsCmd.AddCommand(listResultsCmd)
	resultsCmd.AddCommand(cleanResultsCmd)

	// Global flags for results command
	resultsCmd.PersistentFlags().StringVar(&resultsDataDir, "data-dir", "./data", "Base directory for fit storage")

	// Clean command flags
	cleanResultsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the last N results (0 = keep all)")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete results older than N days (0 = no age limit)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListResults(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	// Display results in a table
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tTIMESTAMP\tCOEFS\tREPLICATES\tCONVERGED\tSIZE")
	fmt.Fprintln(w, "------\t---------\t-----\t----------\t---------\t----")

	for _, info := range infos {
		// Get result directory size
		jobDir := filepath.Join(resultsDataDir, "fits", info.JobID)
		size, err := getDirSize(jobDir)
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		// Format timestamp
		timestamp := info.Timestamp.Format("2006-01-02 15:04:05")

		// Truncate job ID for display
		displayID := info.JobID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\t%s\n",
			displayID,
			timestamp,
			info.Coefficients,
			info.Replicates,
			info.Converged,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal results: %d\n", len(infos))
	return nil
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	// Validate flags
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No results to clean.")
		return nil
	}

	// Determine which results to delete
	toDelete := selectResultsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No results match deletion criteria.")
		return nil
	}

	// Show what will be deleted
	fmt.Printf("Found %d result(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		displayID := info.JobID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}
		fmt.Printf("  - %s (%d replicates, %s)\n",
			displayID,
			info.Replicates,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	// Ask for confirmation unless --force is set
	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Delete results
	deleted := 0
	failed := 0
	for _, info := range toDelete {
		err := resultStore.DeleteResult(info.JobID)
		if err != nil {
			slog.Error("Failed to delete result", "job_id", info.JobID, "error", err)
			failed++
		} else {
			slog.Info("Deleted result", "job_id", info.JobID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d result(s), %d failed.\n", deleted, failed)
	return nil
}

// selectResultsForDeletion determines which results should be deleted based on retention policy
func selectResultsForDeletion(infos []store.FitInfo, keepLast int, olderThanDays int) []store.FitInfo {
	var toDelete []store.FitInfo

	// Apply age-based deletion
	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
			}
		}
	}

	// Apply count-based deletion: keep the newest keepLast results
	if keepLast > 0 && len(infos) > keepLast {
		// Sort by timestamp (oldest first)
		sorted := make([]store.FitInfo, len(infos))
		copy(sorted, infos)
		for i := 0; i < len(sorted)-1; i++ {
			for j := 0; j < len(sorted)-i-1; j++ {
				if sorted[j].Timestamp.After(sorted[j+1].Timestamp) {
					sorted[j], sorted[j+1] = sorted[j+1], sorted[j]
				}
			}
		}

		// Delete oldest results beyond keepLast
		numToDelete := len(sorted) - keepLast
		for i := 0; i < numToDelete; i++ {
			// Check if not already in toDelete list
			found := false
			for _, existing := range toDelete {
				if existing.JobID == sorted[i].JobID {
					found = true
					break
				}
			}
			if !found {
				toDelete = append(toDelete, sorted[i])
			}
		}
	}

	return toDelete
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
