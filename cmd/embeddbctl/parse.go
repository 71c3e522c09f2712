package main

import (
	"fmt"
	"strconv"

	"github.com/embeddb/embeddb-go/embeddb"
)

func parseKey(s string, keySize int) ([]byte, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid key %q: %w", s, err)
	}
	buf := make([]byte, keySize)
	embeddb.PutUint64Key(buf, v)
	return buf, nil
}

func parseData(s string, dataSize int) ([]byte, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid data value %q: %w", s, err)
	}
	buf := make([]byte, dataSize)
	embeddb.PutUint64Key(buf, v)
	return buf, nil
}
