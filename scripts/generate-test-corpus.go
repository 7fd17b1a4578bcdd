//go:build ignore

// Package main generates a synthetic notes vault for benchmarking and
// manual testing.
// Usage: go run scripts/generate-test-corpus.go -notes 5000 -output testdata/vault
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numNotes  = flag.Int("notes", 1000, "Number of notes to generate")
	outputDir = flag.String("output", "testdata/vault", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	depth     = flag.Int("depth", 3, "Maximum folder depth")
)

var sections = []string{"work", "journal", "projects", "recipes", "reading", "travel", "ideas", "meetings"}

var words = strings.Fields(`
	agenda budget coffee deadline draft garden hiking invoice kitchen ladder
	lentil meeting migration notebook outline pancake plumber quarterly recipe
	release review roadmap sketch soup standup summary tomato travel waffle
	weekend workshop backlog database deploy dinner errand feedback harbor
	lantern market museum planning pottery reminder schedule sunrise ticket`)

var headings = []string{"Summary", "Notes", "Action items", "Questions", "Links", "Log"}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *numNotes; i++ {
		dir := randomDir(rng)
		name := fmt.Sprintf("%s-%04d.md", words[rng.Intn(len(words))], i)
		path := filepath.Join(*outputDir, dir, name)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create dir: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, []byte(randomNote(rng, name)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write note: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d notes in %s\n", *numNotes, *outputDir)
}

func randomDir(rng *rand.Rand) string {
	n := rng.Intn(*depth + 1)
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, sections[rng.Intn(len(sections))])
	}
	return filepath.Join(parts...)
}

func randomNote(rng *rand.Rand, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", strings.TrimSuffix(name, ".md"))

	for s := 0; s < 1+rng.Intn(4); s++ {
		fmt.Fprintf(&sb, "## %s\n\n", headings[rng.Intn(len(headings))])
		for p := 0; p < 1+rng.Intn(3); p++ {
			sb.WriteString(sentence(rng))
			sb.WriteString("\n")
		}
		if rng.Intn(2) == 0 {
			for b := 0; b < 2+rng.Intn(3); b++ {
				fmt.Fprintf(&sb, "- %s\n", sentence(rng))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func sentence(rng *rand.Rand) string {
	n := 5 + rng.Intn(12)
	ws := make([]string, n)
	for i := range ws {
		ws[i] = words[rng.Intn(len(words))]
	}
	ws[0] = strings.ToUpper(ws[0][:1]) + ws[0][1:]
	return strings.Join(ws, " ") + "."
}
