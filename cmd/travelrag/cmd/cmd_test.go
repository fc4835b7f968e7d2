package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// travelCorpus is a small itinerary split over three files.
var travelCorpus = map[string]string{
	"flights.txt": `FLIGHTS
Flight AZ611 from New York JFK to Rome Fiumicino departs June 3 at 18:45.
Seat 14C, one checked bag included. Check-in closes 60 minutes before departure.`,
	"hotels.txt": `HOTELS
Hotel Artemide, Via Nazionale 22, Rome. Check-in from 14:00, check-out by 11:00.
Breakfast is served on the rooftop terrace from 7:00 to 10:30.`,
	"itinerary.txt": `ITINERARY
Day 1: Colosseum guided tour at 9:00, meet at the Arch of Constantine.
Day 2: Vatican Museums entry at 10:30, tickets are on the phone wallet.`,
}

// setupProject isolates HOME and the config directories, selects the offline
// static embedder and writes the travel corpus into a fresh project directory.
func setupProject(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TRAVELRAG_EMBEDDINGS_PROVIDER", "static")
	t.Setenv("TRAVELRAG_RERANKER_ENABLED", "false")
	t.Setenv("TRAVELRAG_CHUNK_TOKENIZER", "rune")

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	for name, content := range travelCorpus {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// runCLI executes the root command with args and returns what it wrote to
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// indexProject builds the snapshot for dir and fails the test on error.
func indexProject(t *testing.T, dir string) {
	t.Helper()
	_, err := runCLI(t, "--dir", dir, "index")
	require.NoError(t, err)
}
