// Package artifact reads and writes the on-disk data files. The JSON
// shapes are fixed contracts shared with downstream consumers; loaders
// here never reshape them.
package artifact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tradelens/internal/domain"
)

// SaveJSON writes v as indented JSON, creating the parent directory and
// going through a temp file so a crash never truncates an artifact.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSONOrEmpty leaves v untouched when the file does not exist.
// Incremental artifacts start out missing on a fresh run.
func readJSONOrEmpty(path string, v any) error {
	err := readJSON(path, v)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LoadConcordance loads the NAICS→products map.
func LoadConcordance(path string) (map[string]domain.NAICSProducts, error) {
	m := make(map[string]domain.NAICSProducts)
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadTrade loads the trade-by-HS6 artifact. It fails if the file is
// missing; use LoadTradeOrEmpty when resuming a fetch run.
func LoadTrade(path string) (map[string]*domain.TradeRecord, error) {
	m := make(map[string]*domain.TradeRecord)
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadTradeOrEmpty loads the trade artifact, or an empty map if absent.
func LoadTradeOrEmpty(path string) (map[string]*domain.TradeRecord, error) {
	m := make(map[string]*domain.TradeRecord)
	if err := readJSONOrEmpty(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadChinaIndex loads the China deficit index.
func LoadChinaIndex(path string) (domain.ChinaIndex, error) {
	ci := make(domain.ChinaIndex)
	if err := readJSON(path, &ci); err != nil {
		return nil, err
	}
	return ci, nil
}

// LoadDefense loads the defense index.
func LoadDefense(path string) (map[string]domain.DefenseScore, error) {
	m := make(map[string]domain.DefenseScore)
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadDefenseOrEmpty loads the defense index, or an empty map if absent.
func LoadDefenseOrEmpty(path string) (map[string]domain.DefenseScore, error) {
	m := make(map[string]domain.DefenseScore)
	if err := readJSONOrEmpty(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadTradeErrors loads the fetch error collection, empty if absent.
func LoadTradeErrors(path string) (map[string]domain.TradeError, error) {
	m := make(map[string]domain.TradeError)
	if err := readJSONOrEmpty(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadScoreErrors loads the scoring error collection, empty if absent.
func LoadScoreErrors(path string) (map[string]domain.ScoreError, error) {
	m := make(map[string]domain.ScoreError)
	if err := readJSONOrEmpty(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadNAICSNames parses the two-column NAICS name table. The first line
// is a header. Names keep everything after the first comma, so embedded
// commas survive without quoting rules.
func LoadNAICSNames(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := make(map[string]string)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed line in %s: %q", filepath.Base(path), line)
		}
		names[parts[0]] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return names, nil
}
