package bank

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
)

// #region file-format

// fileBank is the on-disk JSON structure for an item bank.
type fileBank struct {
	Description string     `json:"description,omitempty"`
	Items       []irt.Item `json:"items"`
}

// #endregion file-format

// #region load-file

// LoadFile reads and validates an item bank from a JSON file.
func LoadFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}
	var f fileBank
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse bank file: %w", err)
	}
	return New(f.Items)
}

// #endregion load-file

// #region save-file

// SaveFile writes the bank to a JSON file, preserving bank order.
func SaveFile(path string, b *Bank, description string) error {
	data, err := json.MarshalIndent(fileBank{Description: description, Items: b.Items()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write bank file: %w", err)
	}
	return nil
}

// #endregion save-file
