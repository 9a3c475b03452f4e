package quotefile

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"klinechart/internal/model"
)

// Parquet stores bars as a Parquet file.
type Parquet struct{}

func (Parquet) Extension() string { return "parquet" }

func (Parquet) Save(quotes []model.Quote, path string) error {
	if err := parquet.WriteFile(path, toBars(quotes)); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

func (Parquet) Load(path string) ([]model.Quote, error) {
	bars, err := parquet.ReadFile[Bar](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return toQuotes(bars), nil
}
