package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/null-channel/ai-arena/internal/agents"
)

// gameParamColumns are optional per-row game parameters passed through to
// the game factory, which validates them.
var gameParamColumns = []string{"board_size", "win_length", "rows", "cols", "rounds"}

// LoadCSV reads match specs from a header-driven CSV file.
func LoadCSV(path string) ([]Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: open %s: %w", path, err)
	}
	defer f.Close()

	specs, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("batch: %s: %w", path, err)
	}
	return specs, nil
}

// ParseCSV reads specs from r. The first row is a header; column names are
// case-insensitive and may appear in any order. A malformed row fails the
// whole load with its 1-based file row number.
func ParseCSV(r io.Reader) ([]Spec, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[normalize(name)] = i
	}
	if _, ok := cols["game_name"]; !ok {
		return nil, fmt.Errorf("csv is missing the game_name column")
	}

	var specs []Spec
	row := 1
	for {
		record, err := reader.Read()
		row++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		spec, err := rowSpec(cols, record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("csv contains no match rows")
	}
	return specs, nil
}

func rowSpec(cols map[string]int, record []string) (Spec, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	spec := Spec{
		Game:        get("game_name"),
		Description: get("description"),
		Repetitions: 1,
	}
	if spec.Game == "" {
		return Spec{}, fmt.Errorf("game_name is required")
	}

	if v := get("repetitions"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Spec{}, fmt.Errorf("invalid repetitions %q", v)
		}
		spec.Repetitions = n
	}

	order, err := ParseOrder(get("order"))
	if err != nil {
		return Spec{}, err
	}
	spec.Order = order

	if spec.AgentOne, err = agentColumns(get, "agent_one"); err != nil {
		return Spec{}, err
	}
	if spec.AgentTwo, err = agentColumns(get, "agent_two"); err != nil {
		return Spec{}, err
	}

	for _, param := range gameParamColumns {
		if v := get(param); v != "" {
			if spec.GameParams == nil {
				spec.GameParams = map[string]any{}
			}
			spec.GameParams[param] = v
		}
	}

	return spec, nil
}

func agentColumns(get func(string) string, prefix string) (agents.Config, error) {
	kind, err := agents.ParseKind(get(prefix + "_kind"))
	if err != nil {
		return agents.Config{}, err
	}

	cfg := agents.Config{
		Kind:          kind,
		Model:         get(prefix + "_model"),
		Temperature:   0.7,
		SecretProfile: get(prefix + "_secret_profile"),
		ScriptPath:    get(prefix + "_script"),
	}

	if v := get(prefix + "_temp"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return agents.Config{}, fmt.Errorf("invalid %s_temp %q", prefix, v)
		}
		cfg.Temperature = t
	}
	if v := get(prefix + "_seed"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return agents.Config{}, fmt.Errorf("invalid %s_seed %q", prefix, v)
		}
		cfg.Seed = s
	}

	return cfg, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
