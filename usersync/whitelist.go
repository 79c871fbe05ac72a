package usersync

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadWhitelist loads the (groupname, leader) pairs from a CSV file with a
// header row. File order is preserved; it defines processing order.
func ReadWhitelist(path string) ([]WhitelistEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("whitelist: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("whitelist %s: file is empty", path)
		}
		return nil, fmt.Errorf("whitelist %s: %w", path, err)
	}
	groupCol, leaderCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "groupname":
			groupCol = i
		case "leader":
			leaderCol = i
		}
	}
	if groupCol < 0 || leaderCol < 0 {
		return nil, fmt.Errorf("whitelist %s: header must name groupname and leader columns", path)
	}
	var entries []WhitelistEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whitelist %s: %w", path, err)
		}
		entries = append(entries, WhitelistEntry{
			GroupName: strings.TrimSpace(record[groupCol]),
			Leader:    strings.TrimSpace(record[leaderCol]),
		})
	}
	return entries, nil
}
