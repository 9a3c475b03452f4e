package quotefile

import (
	"encoding/json"
	"fmt"
	"os"

	"klinechart/internal/model"
)

// JSON stores bars as an indented JSON array.
type JSON struct{}

func (JSON) Extension() string { return "json" }

func (JSON) Save(quotes []model.Quote, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toBars(quotes)); err != nil {
		return err
	}
	return f.Close()
}

func (JSON) Load(path string) ([]model.Quote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars []Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return toQuotes(bars), nil
}
