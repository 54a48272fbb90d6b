package main

import (
	"fmt"
	"os"

	"aibom.dev/ledger/bom"
)

func readDocument(path string) (bom.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bom: %w", err)
	}
	doc, err := bom.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func writeDocument(path string, doc bom.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}
