package bot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scoremarket/internal/config"
	"scoremarket/pkg/types"
)

func TestLogTradeWritesDatedFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	b := &Bot{cfg: config.BotConfig{TradeLogDir: dir}}

	entry := tradeLogEntry{
		Market:    types.MarketID("1:8:17420T"),
		Quantity:  []float64{1, 2, 3},
		Cost:      12.5,
		Timestamp: time.Now().Unix(),
	}
	if err := b.logTrade(entry); err != nil {
		t.Fatalf("logTrade: %v", err)
	}

	dayDir := filepath.Join(dir, time.Now().Format("02_01_2006"))
	files, err := os.ReadDir(dayDir)
	if err != nil {
		t.Fatalf("read day dir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("len(files) = %d, want 1", len(files))
	}

	data, err := os.ReadFile(filepath.Join(dayDir, files[0].Name()))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var got tradeLogEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Market != entry.Market || got.Cost != entry.Cost {
		t.Errorf("got %+v, want market/cost matching %+v", got, entry)
	}
}

func TestFabsN(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want float64 }{
		{5, 5}, {-5, 5}, {0, 0},
	}
	for _, c := range cases {
		if got := fabsN(c.in); got != c.want {
			t.Errorf("fabsN(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
