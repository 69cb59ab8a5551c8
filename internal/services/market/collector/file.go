package collector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/riskgate/internal/domain"
)

// FileKlineProvider reads candles from JSON files named after the pair, e.g. SOL_USDT.json.
// The file holds an array of candles in the domain JSON shape, oldest first.
type FileKlineProvider struct {
	dir string
}

// NewFileKlineProvider creates a provider reading from dir.
func NewFileKlineProvider(dir string) *FileKlineProvider {
	return &FileKlineProvider{dir: dir}
}

// Path returns the file holding candles for pair.
func (p *FileKlineProvider) Path(pair domain.Pair) string {
	return filepath.Join(p.dir, pair.String()+".json")
}

// GetKlines returns the last limit candles of the pair's file. The interval is not checked.
func (p *FileKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, _ string, limit int) ([]domain.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := p.Path(pair)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read candles file %s", path)
	}

	var candles []domain.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidCandle, "failed to decode %s: %v", path, err)
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// WriteCandles stores candles for pair in the provider's directory.
func (p *FileKlineProvider) WriteCandles(pair domain.Pair, candles []domain.Candle) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", p.dir)
	}
	data, err := json.MarshalIndent(candles, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode candles")
	}
	return errors.Wrap(os.WriteFile(p.Path(pair), data, 0o644), "failed to write candles file")
}
