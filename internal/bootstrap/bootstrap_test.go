package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"scoremarket/pkg/types"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestReadLinesTrimsAndSkipsBlank(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "ids.txt", "1:8:17420T\n  2:3:99100P  \n\n3:1:55T\n")

	lines, err := readLines(path)
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	want := []string{"1:8:17420T", "2:3:99100P", "3:1:55T"}
	if len(lines) != len(want) {
		t.Fatalf("len(lines) = %d, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestReadLinesMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := readLines(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error reading a nonexistent file")
	}
}

func TestReadLinesEmptyFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.txt", "")

	lines, err := readLines(path)
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("len(lines) = %d, want 0", len(lines))
	}
}

func TestLoadMarketUniverseSplitsTeamsAndPlayers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	teamsFile := writeFile(t, dir, "teams.txt", "1:8:17420T\n2:1:99T\n")
	playersFile := writeFile(t, dir, "players.txt", "2:3:99100P\n")

	teams, players, err := LoadMarketUniverse(teamsFile, playersFile)
	if err != nil {
		t.Fatalf("LoadMarketUniverse: %v", err)
	}
	if len(teams) != 2 {
		t.Errorf("len(teams) = %d, want 2", len(teams))
	}
	if len(players) != 1 {
		t.Errorf("len(players) = %d, want 1", len(players))
	}
	if teams[0] != types.MarketID("1:8:17420T") {
		t.Errorf("teams[0] = %v, want 1:8:17420T", teams[0])
	}
	if players[0] != types.MarketID("2:3:99100P") {
		t.Errorf("players[0] = %v, want 2:3:99100P", players[0])
	}
}

func TestLoadMarketUniverseMissingTeamsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	playersFile := writeFile(t, dir, "players.txt", "2:3:99100P\n")

	if _, _, err := LoadMarketUniverse(filepath.Join(dir, "missing.txt"), playersFile); err == nil {
		t.Error("expected an error when the teams file is missing")
	}
}
