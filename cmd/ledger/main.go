package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// entry mirrors a full ledger record so dedupe can rewrite the file
// without losing fields.
type entry struct {
	ID            string    `json:"id"`
	SourceURL     string    `json:"source_url"`
	OriginalText  string    `json:"original_text"`
	PublishedText string    `json:"published_text"`
	Media         struct {
		Mode string   `json:"mode"`
		URLs []string `json:"urls,omitempty"`
	} `json:"media"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: ledger <stats|dedupe> <results-file>")
	}

	command := os.Args[1]
	ledgerPath := os.Args[2]

	switch command {
	case "stats":
		if err := stats(ledgerPath); err != nil {
			log.Fatal(err)
		}
	case "dedupe":
		if err := dedupe(ledgerPath); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

func loadEntries(ledgerPath string) ([]entry, error) {
	data, err := os.ReadFile(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", ledgerPath, err)
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing ledger JSON: %w", err)
	}
	return entries, nil
}

func stats(ledgerPath string) error {
	entries, err := loadEntries(ledgerPath)
	if err != nil {
		return err
	}

	byStatus := make(map[string]int)
	var oldest, newest time.Time
	for _, e := range entries {
		byStatus[e.Status]++
		if oldest.IsZero() || e.Timestamp.Before(oldest) {
			oldest = e.Timestamp
		}
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}

	fmt.Printf("Entries: %d\n", len(entries))
	for status, count := range byStatus {
		fmt.Printf("  %s: %d\n", status, count)
	}
	if !oldest.IsZero() {
		fmt.Printf("Oldest: %s\n", oldest.Format(time.RFC3339))
		fmt.Printf("Newest: %s\n", newest.Format(time.RFC3339))
	}
	return nil
}

// dedupe removes entries whose id already appeared earlier in the file,
// keeping the first occurrence. Each removal is confirmed interactively.
func dedupe(ledgerPath string) error {
	entries, err := loadEntries(ledgerPath)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	seen := make(map[string]bool)
	kept := make([]entry, 0, len(entries))
	removed := 0

	for _, e := range entries {
		if !seen[e.ID] {
			seen[e.ID] = true
			kept = append(kept, e)
			continue
		}

		fmt.Printf("\nDuplicate id %s (%s)\n", e.ID, e.SourceURL)
		if confirmDelete(reader, e.ID) {
			removed++
			fmt.Printf("  REMOVED: %s\n", e.ID)
		} else {
			kept = append(kept, e)
			fmt.Printf("  SKIP: %s\n", e.ID)
		}
	}

	if removed == 0 {
		fmt.Println("No duplicates removed")
		return nil
	}

	data, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger JSON: %w", err)
	}
	if err := os.WriteFile(ledgerPath, data, 0644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}

	fmt.Printf("\nRemoved %d duplicate entries\n", removed)
	return nil
}

func confirmDelete(reader *bufio.Reader, id string) bool {
	for {
		fmt.Printf("  DELETE %s? [y/N]: ", id)
		input, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("Error reading input: %v", err)
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Println("  Please enter y or n.")
		}
	}
}
